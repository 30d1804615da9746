package knowledge

import (
	"context"
	"database/sql"
)

// PostgresStore persists knowledge fragments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed fragment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateFragment(ctx context.Context, f *Fragment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO knowledge_fragments (id, tenant_id, content, created_at)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.TenantID, f.Content, f.CreatedAt,
	)
	return err
}

func (p *PostgresStore) ListFragments(ctx context.Context, tenantID string) ([]*Fragment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, content, created_at
		FROM knowledge_fragments
		WHERE tenant_id = $1
		ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fragments []*Fragment
	for rows.Next() {
		f := &Fragment{}
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Content, &f.CreatedAt); err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
