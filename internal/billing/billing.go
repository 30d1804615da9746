// Package billing creates Stripe Checkout sessions for plan purchases.
// Payment completion and subscription provisioning happen out of band.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/botbase-io/botbase/internal/directory"
)

// ErrNotConfigured is returned when no Stripe key was provided.
var ErrNotConfigured = errors.New("billing: stripe not configured")

// CheckoutSessions abstracts the Stripe checkout session API for testing.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Service creates checkout sessions for plan purchases.
type Service struct {
	sessions CheckoutSessions
	store    directory.Store
}

// New creates a billing service. An empty secretKey yields a service whose
// operations return ErrNotConfigured; billing is optional in development.
func New(secretKey string, store directory.Store) *Service {
	s := &Service{store: store}
	if secretKey != "" {
		api := &client.API{}
		api.Init(secretKey, nil)
		s.sessions = api.CheckoutSessions
	}
	return s
}

// NewWithSessions creates a billing service over a custom session API.
func NewWithSessions(sessions CheckoutSessions, store directory.Store) *Service {
	return &Service{sessions: sessions, store: store}
}

// Configured reports whether Stripe credentials were provided.
func (s *Service) Configured() bool {
	return s.sessions != nil
}

// CreateCheckoutSession starts a Stripe Checkout flow for a tenant buying a
// plan and returns the hosted checkout URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, tenantID, planID, successURL, cancelURL string) (string, error) {
	if s.sessions == nil {
		return "", ErrNotConfigured
	}

	// The tenant must exist; the checkout webhook provisions the
	// subscription against this ID later.
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return "", err
	}

	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan.StripePriceID == "" {
		return "", fmt.Errorf("billing: plan %s has no stripe price", planID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(tenantID),
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create checkout session: %w", err)
	}
	return sess.URL, nil
}
