// Package cache keeps recently fetched question batches so repeated plays of the
// same category and difficulty do not hit the rate-limited question source.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/telemetry"
)

// Upstream is the question source being cached.
type Upstream interface {
	FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.RawQuestion, error)
}

// Store holds raw batches by key.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]domain.RawQuestion, bool, error)
	Set(ctx context.Context, key string, batch []domain.RawQuestion, ttl time.Duration) error
}

type Config struct {
	Upstream Upstream
	Store    Store
	TTL      time.Duration
}

// Source serves batches from Store and falls back to Upstream on a miss.
// Only non-empty successful batches are stored.
type Source struct {
	upstream Upstream
	store    Store
	ttl      time.Duration
	sf       singleflight.Group
}

func NewSource(c Config) *Source {
	return &Source{
		upstream: c.Upstream,
		store:    c.Store,
		ttl:      c.TTL,
	}
}

func (s *Source) FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.RawQuestion, error) {
	key := Key(req)

	if batch, ok := s.lookup(ctx, key); ok {
		return batch, nil
	}

	// The shared fetch outlives any single caller so a canceled caller cannot
	// fail the others waiting on the same key. Upstream bounds it with its own timeout.
	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if batch, ok := s.lookup(shared, key); ok {
			return batch, nil
		}

		batch, err := s.upstream.FetchQuestions(shared, req)
		if err != nil {
			return nil, err
		}

		if len(batch) > 0 {
			if err := s.store.Set(shared, key, batch, s.ttlWithJitter()); err != nil {
				slog.WarnContext(shared, "cache: store batch failed", "store", s.store.Name(), "key", key, "error", err)
			}
		}
		return batch, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.RawQuestion), nil
	}
}

func (s *Source) lookup(ctx context.Context, key string) ([]domain.RawQuestion, bool) {
	batch, ok, err := s.store.Get(ctx, key)
	if err != nil {
		telemetry.CacheLookups.WithLabelValues(s.store.Name(), "error").Inc()
		slog.WarnContext(ctx, "cache: lookup failed", "store", s.store.Name(), "key", key, "error", err)
		return nil, false
	}
	if !ok {
		telemetry.CacheLookups.WithLabelValues(s.store.Name(), "miss").Inc()
		return nil, false
	}
	telemetry.CacheLookups.WithLabelValues(s.store.Name(), "hit").Inc()
	return batch, true
}

// ttlWithJitter adds up to 10% to the TTL to spread expirations.
func (s *Source) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(rand.Int64N(jitterMax+1))
}

// Key identifies a batch request.
func Key(req domain.FetchRequest) string {
	return fmt.Sprintf("questions:%d:%s:%d", req.CategoryID, req.Difficulty, req.Amount)
}
