// Package knowledge assembles per-tenant knowledge base context for reply
// generation. Retrieval is best effort: a tenant with no fragments, or a
// store outage, yields an empty context rather than an error, and the
// pipeline proceeds ungrounded.
package knowledge

import (
	"context"
	"strings"
	"time"

	"github.com/botbase-io/botbase/internal/logging"
)

// Fragment is one unit of tenant knowledge base content.
type Fragment struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists knowledge fragments.
type Store interface {
	CreateFragment(ctx context.Context, f *Fragment) error
	// ListFragments returns a tenant's fragments in insertion order.
	ListFragments(ctx context.Context, tenantID string) ([]*Fragment, error)
}

// Retriever fetches and concatenates tenant knowledge.
type Retriever struct {
	store Store
}

// NewRetriever creates a retriever backed by the given store.
func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Context returns the tenant's knowledge fragments joined into a single
// string, non-empty fragments separated by single spaces. It never fails:
// store errors are logged and reported as an empty context.
func (r *Retriever) Context(ctx context.Context, tenantID string) string {
	fragments, err := r.store.ListFragments(ctx, tenantID)
	if err != nil {
		logging.L(ctx).Warn("knowledge fetch failed, proceeding without context",
			"tenant_id", tenantID, "error", err)
		return ""
	}

	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.Content != "" {
			parts = append(parts, f.Content)
		}
	}
	return strings.Join(parts, " ")
}
