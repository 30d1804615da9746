// Package directory resolves tenants, plans, and subscriptions for the
// multi-tenant bot platform. Each tenant owns one Telegram bot; the bot
// token doubles as the routing credential for inbound webhooks.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/botbase-io/botbase/internal/logging"
)

// Errors
var (
	ErrTenantNotFound       = errors.New("directory: tenant not found")
	ErrNoActiveSubscription = errors.New("directory: no active subscription")
	ErrPlanNotFound         = errors.New("directory: plan not found")
	ErrBotTokenTaken        = errors.New("directory: bot token already registered")
	ErrSubscriptionNotFound = errors.New("directory: subscription not found")
)

// Tenant represents a company using the platform.
type Tenant struct {
	ID           string    `json:"id"`
	BotToken     string    `json:"botToken"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Plan is a pricing tier with a per-period token allowance.
type Plan struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TokenLimit    int    `json:"tokenLimit"`
	PriceCents    int64  `json:"priceCents"`
	StripePriceID string `json:"stripePriceId,omitempty"`
}

// Subscription binds a tenant to a plan for a billing period.
type Subscription struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	PlanID    string    `json:"planId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
}

// Directory is the tenant resolution service.
type Directory struct {
	store Store
}

// New creates a directory backed by the given store.
func New(store Store) *Directory {
	return &Directory{store: store}
}

// ResolveTenant looks up the tenant owning a bot token. Resolution is
// fail-closed: any store error is logged and reported as not-found, so an
// unresolvable token is never replied to.
func (d *Directory) ResolveTenant(ctx context.Context, botToken string) (*Tenant, error) {
	t, err := d.store.GetTenantByBotToken(ctx, botToken)
	if err != nil {
		if !errors.Is(err, ErrTenantNotFound) {
			logging.L(ctx).Error("tenant lookup failed", "error", err)
		}
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// ResolveActiveSubscription returns the tenant's active subscription and its
// plan. Like tenant lookup this is fail-closed; callers degrade to a
// user-visible notice rather than replying.
func (d *Directory) ResolveActiveSubscription(ctx context.Context, tenantID string) (*Subscription, *Plan, error) {
	sub, err := d.store.GetActiveSubscription(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, ErrNoActiveSubscription) {
			logging.L(ctx).Error("subscription lookup failed", "tenant_id", tenantID, "error", err)
		}
		return nil, nil, ErrNoActiveSubscription
	}

	plan, err := d.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		logging.L(ctx).Error("plan lookup failed", "plan_id", sub.PlanID, "error", err)
		return nil, nil, ErrNoActiveSubscription
	}

	return sub, plan, nil
}
