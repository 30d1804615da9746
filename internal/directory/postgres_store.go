package directory

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// PostgresStore persists directory data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed directory store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateTenant(ctx context.Context, t *Tenant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tenants (id, bot_token, name, contact_email, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.BotToken, t.Name, t.ContactEmail, t.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrBotTokenTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, bot_token, name, contact_email, created_at
		FROM tenants WHERE id = $1`, id))
}

func (p *PostgresStore) GetTenantByBotToken(ctx context.Context, botToken string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, bot_token, name, contact_email, created_at
		FROM tenants WHERE bot_token = $1`, botToken))
}

func (p *PostgresStore) CreatePlan(ctx context.Context, plan *Plan) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO plans (id, name, token_limit, price_cents, stripe_price_id)
		VALUES ($1, $2, $3, $4, $5)`,
		plan.ID, plan.Name, plan.TokenLimit, plan.PriceCents, plan.StripePriceID,
	)
	return err
}

func (p *PostgresStore) GetPlan(ctx context.Context, id string) (*Plan, error) {
	plan := &Plan{}
	var stripePriceID sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, token_limit, price_cents, stripe_price_id
		FROM plans WHERE id = $1`, id,
	).Scan(&plan.ID, &plan.Name, &plan.TokenLimit, &plan.PriceCents, &stripePriceID)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if stripePriceID.Valid {
		plan.StripePriceID = stripePriceID.String
	}
	return plan, nil
}

func (p *PostgresStore) ListPlans(ctx context.Context) ([]*Plan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, token_limit, price_cents, stripe_price_id
		FROM plans ORDER BY price_cents`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []*Plan
	for rows.Next() {
		plan := &Plan{}
		var stripePriceID sql.NullString
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.TokenLimit, &plan.PriceCents, &stripePriceID); err != nil {
			return nil, err
		}
		if stripePriceID.Valid {
			plan.StripePriceID = stripePriceID.String
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (p *PostgresStore) CreateSubscription(ctx context.Context, s *Subscription) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, tenant_id, plan_id, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.TenantID, s.PlanID, s.StartDate, s.EndDate, s.IsActive,
	)
	return err
}

func (p *PostgresStore) GetActiveSubscription(ctx context.Context, tenantID string) (*Subscription, error) {
	s := &Subscription{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, plan_id, start_date, end_date, is_active
		FROM subscriptions
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY start_date DESC
		LIMIT 1`, tenantID,
	).Scan(&s.ID, &s.TenantID, &s.PlanID, &s.StartDate, &s.EndDate, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	t := &Tenant{}
	var email sql.NullString
	err := row.Scan(&t.ID, &t.BotToken, &t.Name, &email, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	if email.Valid {
		t.ContactEmail = email.String
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
