package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/etrivia/internal/cache"
	"github.com/victornm/etrivia/internal/opentdb"
	"github.com/victornm/etrivia/internal/telemetry"
	"github.com/victornm/etrivia/internal/trivia"
)

// Cache kinds.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ConnectRedis dials and pings the configured redis.
func ConnectRedis(c Config) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    c.Redis.Addrs,
		Password: c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return r, nil
}

// NewTrivia builds the question service: the Open Trivia DB client, optionally
// behind a batch cache, with the configured fallback policy. r may be nil unless
// the cache kind is redis.
func NewTrivia(c Config, r redis.UniversalClient) (*trivia.Service, error) {
	client, err := opentdb.NewClient(opentdb.Config{
		BaseURL: c.Trivia.BaseURL,
		Timeout: c.Trivia.Timeout,
	})
	if err != nil {
		return nil, err
	}

	fallback, err := trivia.ParseFallback(c.Trivia.Fallback)
	if err != nil {
		return nil, err
	}

	var source trivia.Source = client
	switch c.Cache.Kind {
	case "", CacheNone:
	case CacheMemory:
		source = cache.NewSource(cache.Config{
			Upstream: client,
			Store:    cache.NewMemoryStore(),
			TTL:      c.Cache.TTL,
		})
	case CacheRedis:
		if r == nil {
			return nil, fmt.Errorf("cache kind %q needs redis addrs", c.Cache.Kind)
		}
		source = cache.NewSource(cache.Config{
			Upstream: client,
			Store:    cache.NewRedisStore(r, c.Redis.Prefix),
			TTL:      c.Cache.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}

	return trivia.NewService(trivia.Config{
		Source:   source,
		Amount:   c.Trivia.Amount,
		Fallback: fallback,
	}), nil
}
