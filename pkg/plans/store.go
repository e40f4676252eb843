package plans

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Store provides access to subscription plans
type Store interface {
	Get(ctx context.Context, id int64) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
	Upsert(ctx context.Context, plan *Plan) error
}

// PostgresStore implements Store using PostgreSQL. Queries stay within the
// SQL subset SQLite also accepts.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const planColumns = `id, name, description, price_cents, billing_period, generation_limit,
		       features, is_active, sort_order, created_at, updated_at`

// Get returns the plan with the given id, active or not
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByName returns the plan with the given name
func (s *PostgresStore) GetByName(ctx context.Context, name string) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE name = $1`
	return s.getOne(ctx, query, name)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg any) (*Plan, error) {
	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListActive returns active plans ordered by sort order, then price
func (s *PostgresStore) ListActive(ctx context.Context) ([]*Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM subscription_plans
		WHERE is_active = TRUE
		ORDER BY sort_order, price_cents
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var result []*Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		result = append(result, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return result, nil
}

// Upsert inserts the plan or updates the existing plan with the same name,
// filling in ID and timestamps.
func (s *PostgresStore) Upsert(ctx context.Context, plan *Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	features, err := json.Marshal(nonNil(plan.Features))
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	var limit any
	if plan.GenerationLimit != nil {
		limit = int64(*plan.GenerationLimit)
	}

	now := s.now().UTC()
	query := `
		INSERT INTO subscription_plans (name, description, price_cents, billing_period, generation_limit,
		                                features, is_active, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price_cents = EXCLUDED.price_cents,
		    billing_period = EXCLUDED.billing_period, generation_limit = EXCLUDED.generation_limit,
		    features = EXCLUDED.features, is_active = EXCLUDED.is_active,
		    sort_order = EXCLUDED.sort_order, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		plan.Name, nullString(plan.Description), plan.PriceCents, string(plan.BillingPeriod), limit,
		string(features), plan.IsActive, plan.SortOrder, now,
	).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	stored, err := s.Get(ctx, plan.ID)
	if err != nil {
		return err
	}
	plan.CreatedAt = stored.CreatedAt
	plan.UpdatedAt = stored.UpdatedAt

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*Plan, error) {
	var (
		plan        Plan
		description sql.NullString
		period      string
		limit       sql.NullInt64
		features    []byte
	)
	err := row.Scan(&plan.ID, &plan.Name, &description, &plan.PriceCents, &period, &limit,
		&features, &plan.IsActive, &plan.SortOrder, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}

	plan.Description = description.String
	plan.BillingPeriod = BillingPeriod(period)
	if limit.Valid {
		plan.GenerationLimit = Limit(int(limit.Int64))
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &plan.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}

	return &plan, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
