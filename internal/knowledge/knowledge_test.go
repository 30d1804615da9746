package knowledge

import (
	"context"
	"errors"
	"testing"
)

type brokenStore struct{}

func (brokenStore) CreateFragment(ctx context.Context, f *Fragment) error { return nil }
func (brokenStore) ListFragments(ctx context.Context, tenantID string) ([]*Fragment, error) {
	return nil, errors.New("connection refused")
}

func TestContext_JoinsFragmentsInOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i, content := range []string{"We ship worldwide.", "Returns accepted within 30 days.", "Support hours are 9-5 CET."} {
		if err := store.CreateFragment(ctx, &Fragment{
			ID:       string(rune('a' + i)),
			TenantID: "tnt_1",
			Content:  content,
		}); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRetriever(store)
	got := r.Context(ctx, "tnt_1")
	want := "We ship worldwide. Returns accepted within 30 days. Support hours are 9-5 CET."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContext_SkipsEmptyFragments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i, content := range []string{"first", "", "third"} {
		if err := store.CreateFragment(ctx, &Fragment{
			ID:       string(rune('a' + i)),
			TenantID: "tnt_1",
			Content:  content,
		}); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRetriever(store)
	if got := r.Context(ctx, "tnt_1"); got != "first third" {
		t.Errorf("got %q, want %q", got, "first third")
	}
}

func TestContext_EmptyForUnknownTenant(t *testing.T) {
	r := NewRetriever(NewMemoryStore())
	if got := r.Context(context.Background(), "tnt_missing"); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestContext_StoreErrorIsFailOpen(t *testing.T) {
	r := NewRetriever(brokenStore{})
	if got := r.Context(context.Background(), "tnt_1"); got != "" {
		t.Errorf("expected empty context on store error, got %q", got)
	}
}
