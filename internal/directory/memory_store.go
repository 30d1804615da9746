package directory

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory directory store for demo/development.
type MemoryStore struct {
	mu        sync.RWMutex
	tenants   map[string]*Tenant // by ID
	botTokens map[string]string  // bot token -> tenant ID
	plans     map[string]*Plan
	subs      map[string]*Subscription // by ID
}

// NewMemoryStore creates a new in-memory directory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:   make(map[string]*Tenant),
		botTokens: make(map[string]string),
		plans:     make(map[string]*Plan),
		subs:      make(map[string]*Subscription),
	}
}

func (m *MemoryStore) CreateTenant(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.botTokens[t.BotToken]; exists {
		return ErrBotTokenTaken
	}

	cp := *t
	m.tenants[t.ID] = &cp
	m.botTokens[t.BotToken] = t.ID
	return nil
}

func (m *MemoryStore) GetTenant(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetTenantByBotToken(_ context.Context, botToken string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.botTokens[botToken]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *m.tenants[id]
	return &cp, nil
}

func (m *MemoryStore) CreatePlan(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPlan(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListPlans(_ context.Context) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plans := make([]*Plan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		plans = append(plans, &cp)
	}
	return plans, nil
}

func (m *MemoryStore) CreateSubscription(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetActiveSubscription(_ context.Context, tenantID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.subs {
		if s.TenantID == tenantID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNoActiveSubscription
}

var _ Store = (*MemoryStore)(nil)
