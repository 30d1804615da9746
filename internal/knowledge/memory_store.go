package knowledge

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory fragment store for demo/development.
type MemoryStore struct {
	mu        sync.RWMutex
	fragments map[string][]*Fragment // by tenant ID, insertion order
}

// NewMemoryStore creates a new in-memory fragment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fragments: make(map[string][]*Fragment)}
}

func (m *MemoryStore) CreateFragment(_ context.Context, f *Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *f
	m.fragments[f.TenantID] = append(m.fragments[f.TenantID], &cp)
	return nil
}

func (m *MemoryStore) ListFragments(_ context.Context, tenantID string) ([]*Fragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.fragments[tenantID]
	out := make([]*Fragment, len(stored))
	for i, f := range stored {
		cp := *f
		out[i] = &cp
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
