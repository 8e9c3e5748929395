package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/victornm/etrivia/internal/domain"
)

type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishPhaseChanged forwards a phase change to the player's channel. Changes that
// arrive after a newer one of the same session are dropped.
func (a *API) PublishPhaseChanged(ctx context.Context, e domain.EventPhaseChanged) error {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	snap := e.Snapshot
	if snap.SessionID == a.published.SessionID && snap.Version <= a.published.Version {
		return nil
	}
	if err := a.publishNotification(ctx, snap.PlayerName, e.Name(), snap); err != nil {
		return err
	}
	a.published = snap
	return nil
}

func (a *API) publishNotification(ctx context.Context, player, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:player:%s", a.prefix, player), b).Err()
}
