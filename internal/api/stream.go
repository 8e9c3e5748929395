package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/quiz"
)

const (
	msgSnapshot = "snapshot"
	msgError    = "error"

	cmdSelect = "select"
	cmdSubmit = "submit"
	cmdNext   = "next"
	cmdReplay = "replay"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stream upgrades to a WebSocket that pushes a snapshot on every phase change of the
// active quiz and accepts select, submit, next and replay commands.
func (a *API) Stream(c *gin.Context) {
	e, err := a.active()
	if err != nil {
		renderError(c, err)
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "api: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					slog.DebugContext(ctx, "api: websocket write failed", "error", err)
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-ctx.Done():
		}
	}

	// Handlers run concurrently, so events only trigger a push of the engine's
	// current snapshot and versions already sent are skipped.
	var (
		mu      sync.Mutex
		sent    uint64
		sentAny bool
	)
	pushLatest := func() {
		mu.Lock()
		defer mu.Unlock()

		snap := e.Snapshot()
		if sentAny && snap.Version <= sent {
			return
		}
		sent, sentAny = snap.Version, true
		push(outboundMessage{Type: msgSnapshot, Payload: snap})
	}

	sessionID := e.Snapshot().SessionID
	unsubscribe := a.eb.Subscribe(domain.EventNamePhaseChanged, func(_ context.Context, ev event.Event) error {
		if ev.(domain.EventPhaseChanged).Snapshot.SessionID == sessionID {
			pushLatest()
		}
		return nil
	})

	pushLatest()

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			break
		}
		if err := a.handleCommand(ctx, e, in); err != nil {
			ce := errors.Convert(err)
			push(outboundMessage{Type: msgError, Payload: errorPayload{Code: ce.Code.String(), Message: ce.Message}})
		}
	}

	unsubscribe()
	cancel()
	<-writerDone
}

func (a *API) handleCommand(ctx context.Context, e *quiz.Engine, in inboundMessage) error {
	switch in.Type {
	case cmdSelect:
		var p selectAnswerRequest
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid select payload"), errors.WithCause(err))
		}
		_, err := e.Select(ctx, p.Choice)
		return err
	case cmdSubmit:
		_, err := e.Submit(ctx)
		return err
	case cmdNext:
		_, err := e.Next(ctx)
		return err
	case cmdReplay:
		go func() {
			_ = e.Replay(context.WithoutCancel(ctx))
		}()
		return nil
	default:
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unsupported message type %q", in.Type))
	}
}
