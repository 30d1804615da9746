// Package usage is the append-only token consumption ledger. Each generated
// reply appends one event against the tenant's subscription; quota checks
// sum events over the current billing period.
//
// Reads fail open (a store outage reports zero usage and the quota gate lets
// traffic through) and writes are best effort (a failed append loses the
// charge but never blocks the reply). Availability is preferred over strict
// metering accuracy.
package usage

import (
	"context"
	"time"

	"github.com/botbase-io/botbase/internal/idgen"
	"github.com/botbase-io/botbase/internal/logging"
	"github.com/botbase-io/botbase/internal/metrics"
)

// Event records tokens consumed by one generated reply.
type Event struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscriptionId"`
	Tokens         int       `json:"tokens"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists usage events.
type Store interface {
	AppendEvent(ctx context.Context, e *Event) error
	// SumTokens returns the total tokens recorded for a subscription within
	// [start, end], boundaries inclusive.
	SumTokens(ctx context.Context, subscriptionID string, start, end time.Time) (int, error)
}

// Ledger meters token consumption per subscription.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// TotalUsage returns tokens consumed by a subscription in the given window.
// A store error is logged and reported as zero usage.
func (l *Ledger) TotalUsage(ctx context.Context, subscriptionID string, start, end time.Time) int {
	total, err := l.store.SumTokens(ctx, subscriptionID, start, end)
	if err != nil {
		logging.L(ctx).Warn("usage read failed, treating as zero",
			"subscription_id", subscriptionID, "error", err)
		return 0
	}
	return total
}

// RecordUsage appends a consumption event. Returns false (after logging) if
// the append failed; the caller proceeds with delivery either way.
func (l *Ledger) RecordUsage(ctx context.Context, subscriptionID string, tokens int) bool {
	e := &Event{
		ID:             idgen.WithPrefix("evt_"),
		SubscriptionID: subscriptionID,
		Tokens:         tokens,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.store.AppendEvent(ctx, e); err != nil {
		logging.L(ctx).Error("usage write failed, tokens not charged",
			"subscription_id", subscriptionID, "tokens", tokens, "error", err)
		return false
	}
	metrics.TokensConsumedTotal.Add(float64(tokens))
	return true
}
