package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/etrivia/internal/domain"
)

// RedisStore keeps batches as JSON strings with a redis TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: r, prefix: prefix}
}

func (*RedisStore) Name() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, key string) ([]domain.RawQuestion, bool, error) {
	b, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	var batch []domain.RawQuestion
	if err := json.Unmarshal(b, &batch); err != nil {
		return nil, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return batch, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, batch []domain.RawQuestion, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	b, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.redis.Set(ctx, s.key(key), b, ttl).Err()
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
