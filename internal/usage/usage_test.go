package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

type brokenStore struct{}

func (brokenStore) AppendEvent(ctx context.Context, e *Event) error {
	return errors.New("connection refused")
}
func (brokenStore) SumTokens(ctx context.Context, subscriptionID string, start, end time.Time) (int, error) {
	return 0, errors.New("connection refused")
}

func TestRecordAndTotal(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	ctx := context.Background()

	if !l.RecordUsage(ctx, "sub_1", 120) {
		t.Fatal("expected record to succeed")
	}
	if !l.RecordUsage(ctx, "sub_1", 80) {
		t.Fatal("expected record to succeed")
	}
	// A different subscription does not count.
	l.RecordUsage(ctx, "sub_2", 999)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	if got := l.TotalUsage(ctx, "sub_1", start, end); got != 200 {
		t.Errorf("expected total 200, got %d", got)
	}
}

func TestTotalUsage_WindowIsInclusive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	at := func(ts time.Time, tokens int) {
		t.Helper()
		if err := store.AppendEvent(ctx, &Event{
			ID: "e", SubscriptionID: "sub_1", Tokens: tokens, CreatedAt: ts,
		}); err != nil {
			t.Fatal(err)
		}
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	at(start, 10)                     // on the start boundary
	at(end, 20)                       // on the end boundary
	at(start.Add(-time.Second), 100)  // before the window
	at(end.Add(time.Second), 100)     // after the window

	l := NewLedger(store)
	if got := l.TotalUsage(ctx, "sub_1", start, end); got != 30 {
		t.Errorf("expected total 30 (boundaries inclusive), got %d", got)
	}
}

func TestTotalUsage_StoreErrorIsFailOpen(t *testing.T) {
	l := NewLedger(brokenStore{})
	got := l.TotalUsage(context.Background(), "sub_1", time.Time{}, time.Now())
	if got != 0 {
		t.Errorf("expected 0 on store error, got %d", got)
	}
}

func TestRecordUsage_StoreErrorReturnsFalse(t *testing.T) {
	l := NewLedger(brokenStore{})
	if l.RecordUsage(context.Background(), "sub_1", 50) {
		t.Error("expected false when append fails")
	}
}

func TestTotalUsage_ZeroEvents(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	if got := l.TotalUsage(context.Background(), "sub_none", time.Time{}, time.Now()); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
