package directory

import "context"

// Store persists tenants, plans, and subscriptions.
type Store interface {
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	GetTenantByBotToken(ctx context.Context, botToken string) (*Tenant, error)

	CreatePlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)

	CreateSubscription(ctx context.Context, s *Subscription) error
	GetActiveSubscription(ctx context.Context, tenantID string) (*Subscription, error)
}
