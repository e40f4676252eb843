package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/laman/pkg/observability"
	"github.com/platinummonkey/laman/pkg/plans"
)

var tracer = otel.Tracer("laman/entitlements")

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const subscriptionColumns = `id, user_id, plan_id, status, starts_at, ends_at, current_period_start,
		       current_period_end, generations_used, created_at, updated_at`

// Tracker answers "may this user generate a page now?" and keeps the
// per-period usage counters. It is safe for concurrent use; the database
// serializes competing updates to the same subscription.
type Tracker struct {
	db     *sql.DB
	plans  plans.Store
	logger *observability.Logger

	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics

	// Now is the clock used for period arithmetic
	Now func() time.Time
}

// NewTracker creates a new Tracker
func NewTracker(db *sql.DB, planStore plans.Store, logger *observability.Logger) *Tracker {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Tracker{
		db:     db,
		plans:  planStore,
		logger: logger,
		Now:    time.Now,
	}
}

// WithMetrics enables Prometheus and OpenTelemetry counters. Either may be nil.
func (t *Tracker) WithMetrics(metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) *Tracker {
	t.metrics = metrics
	t.otelMetrics = otelMetrics
	return t
}

func (t *Tracker) now() time.Time {
	return t.Now().UTC()
}

// GetActiveSubscription returns the user's subscription granting access
// now, or nil when there is none.
func (t *Tracker) GetActiveSubscription(ctx context.Context, userID int64) (*Subscription, error) {
	return t.activeSubscription(ctx, t.db, userID, false)
}

func (t *Tracker) activeSubscription(ctx context.Context, q querier, userID int64, forUpdate bool) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1 AND status = 'active' AND current_period_end > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	sub, err := scanSubscription(q.QueryRowContext(ctx, query, userID, t.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	if err := t.attachPlan(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (t *Tracker) attachPlan(ctx context.Context, sub *Subscription) error {
	plan, err := t.plans.Get(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("failed to load plan %d: %w", sub.PlanID, err)
	}
	sub.Plan = plan
	return nil
}

// CanGenerate reports whether the user may generate one more page now
func (t *Tracker) CanGenerate(ctx context.Context, userID int64) (bool, error) {
	sub, err := t.GetActiveSubscription(ctx, userID)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.CanGenerate(), nil
}

// Remaining returns the generations left this period: nil for unlimited
// plans and zero when the user has no active subscription.
func (t *Tracker) Remaining(ctx context.Context, userID int64) (*int, error) {
	sub, err := t.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		zero := 0
		return &zero, nil
	}
	return sub.Remaining(), nil
}

// Usage summarizes the user's quota for the current period
func (t *Tracker) Usage(ctx context.Context, userID int64) (*UsageSummary, error) {
	sub, err := t.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		zero := 0
		return &UsageSummary{Limit: &zero, Remaining: &zero}, nil
	}

	end := sub.CurrentPeriodEnd
	return &UsageSummary{
		Subscription: sub,
		Used:         sub.GenerationsUsed,
		Limit:        sub.Plan.GenerationLimit,
		Remaining:    sub.Remaining(),
		CanGenerate:  sub.CanGenerate(),
		PeriodEnd:    &end,
	}, nil
}

// Subscribe moves the user onto planID. Any active subscription is
// cancelled in the same transaction and the new one starts a fresh
// period with zero usage.
func (t *Tracker) Subscribe(ctx context.Context, userID, planID int64) (*Subscription, error) {
	ctx, span := tracer.Start(ctx, "Tracker.Subscribe",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int64("plan.id", planID),
		),
	)
	defer span.End()

	plan, err := t.plans.Get(ctx, planID)
	if errors.Is(err, plans.ErrPlanNotFound) || (err == nil && !plan.IsActive) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	now := t.now()
	sub := &Subscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             StatusActive,
		StartsAt:           now,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   plan.BillingPeriod.AddTo(now),
		CreatedAt:          now,
		UpdatedAt:          now,
		Plan:               plan,
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// lapsed rows still marked active are closed too, keeping one active row per user
	cancelQuery := `
		UPDATE user_subscriptions
		SET status = 'cancelled', ends_at = $1, updated_at = $1
		WHERE user_id = $2 AND status = 'active'
	`
	if _, err := tx.ExecContext(ctx, cancelQuery, now, userID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to cancel existing subscription: %w", err)
	}

	insertQuery := `
		INSERT INTO user_subscriptions (user_id, plan_id, status, starts_at, current_period_start,
		                                current_period_end, generations_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $5, 0, $4, $4)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, insertQuery, sub.UserID, sub.PlanID, sub.Status, now, sub.CurrentPeriodEnd).
		Scan(&sub.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create subscription")
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit subscription: %w", err)
	}

	t.recordChange(ctx, "subscribe", plan.Name)
	t.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"plan":            plan.Name,
		"subscription_id": sub.ID,
	}).Info("user subscribed")

	return sub, nil
}

// Cancel ends the user's active subscription immediately
func (t *Tracker) Cancel(ctx context.Context, userID int64) error {
	sub, err := t.GetActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoActiveSubscription
	}

	now := t.now()
	query := `
		UPDATE user_subscriptions
		SET status = 'cancelled', ends_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'active'
	`
	result, err := t.db.ExecContext(ctx, query, now, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoActiveSubscription
	}

	t.recordChange(ctx, "cancel", sub.Plan.Name)
	t.logger.WithField("user_id", userID).WithField("subscription_id", sub.ID).Info("subscription cancelled")
	return nil
}

// RecordGeneration charges one generation to the user's active
// subscription. The increment is a single guarded UPDATE, so concurrent
// callers can never push usage past the limit.
func (t *Tracker) RecordGeneration(ctx context.Context, userID int64) error {
	now := t.now()
	query := `
		UPDATE user_subscriptions
		SET generations_used = generations_used + 1, updated_at = $1
		WHERE user_id = $2 AND status = 'active' AND current_period_end > $1
		  AND (
		    (SELECT generation_limit FROM subscription_plans WHERE id = plan_id) IS NULL
		    OR generations_used < (SELECT generation_limit FROM subscription_plans WHERE id = plan_id)
		  )
	`
	result, err := t.db.ExecContext(ctx, query, now, userID)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	sub, err := t.GetActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoActiveSubscription
	}
	t.recordRejection(ctx, sub)
	return limitExceeded(sub)
}

// History returns the user's subscriptions, newest first
func (t *Tracker) History(ctx context.Context, userID int64, limit int) ([]*Subscription, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := t.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var history []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		history = append(history, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	rows.Close()

	for _, sub := range history {
		if err := t.attachPlan(ctx, sub); err != nil {
			return nil, err
		}
	}
	return history, nil
}

func (t *Tracker) recordChange(ctx context.Context, action, plan string) {
	if t.metrics != nil {
		t.metrics.SubscriptionChangesTotal.WithLabelValues(action, plan).Inc()
	}
	t.otelMetrics.RecordSubscriptionChange(ctx, action, plan)
}

func (t *Tracker) recordRejection(ctx context.Context, sub *Subscription) {
	plan := ""
	if sub.Plan != nil {
		plan = sub.Plan.Name
	}
	if t.metrics != nil {
		t.metrics.GenerationLimitRejected.WithLabelValues(plan).Inc()
	}
	t.otelMetrics.RecordLimitRejection(ctx, plan)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var (
		sub    Subscription
		status string
		endsAt sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &status, &sub.StartsAt, &endsAt,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.GenerationsUsed, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.Status = Status(status)
	if endsAt.Valid {
		sub.EndsAt = &endsAt.Time
	}
	return &sub, nil
}
