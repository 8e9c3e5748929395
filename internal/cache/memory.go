package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/victornm/etrivia/internal/domain"
)

// MemoryStore keeps batches in process.
type MemoryStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	batch     []domain.RawQuestion
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:   time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (*MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]domain.RawQuestion, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !e.expiresAt.After(m.clock()) {
		return nil, false, nil
	}
	return slices.Clone(e.batch), true, nil
}

// Set stores batch until ttl elapses. A non-positive ttl stores nothing.
func (m *MemoryStore) Set(_ context.Context, key string, batch []domain.RawQuestion, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	for k, e := range m.entries {
		if !e.expiresAt.After(now) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{
		batch:     slices.Clone(batch),
		expiresAt: now.Add(ttl),
	}
	return nil
}
