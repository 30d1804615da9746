package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory usage event store for demo/development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryStore creates a new in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *MemoryStore) SumTokens(_ context.Context, subscriptionID string, start, end time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, e := range m.events {
		if e.SubscriptionID != subscriptionID {
			continue
		}
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		total += e.Tokens
	}
	return total, nil
}

var _ Store = (*MemoryStore)(nil)
