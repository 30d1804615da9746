package usage

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore persists usage events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed usage store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, subscription_id, tokens, created_at)
		VALUES ($1, $2, $3, $4)`,
		e.ID, e.SubscriptionID, e.Tokens, e.CreatedAt,
	)
	return err
}

func (p *PostgresStore) SumTokens(ctx context.Context, subscriptionID string, start, end time.Time) (int, error) {
	var total int
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens), 0)
		FROM usage_events
		WHERE subscription_id = $1 AND created_at >= $2 AND created_at <= $3`,
		subscriptionID, start, end,
	).Scan(&total)
	return total, err
}

var _ Store = (*PostgresStore)(nil)
