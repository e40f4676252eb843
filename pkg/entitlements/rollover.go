package entitlements

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/laman/pkg/plans"
)

// RollOver processes subscriptions whose current period has ended. In
// renew mode the period advances by whole billing periods until it covers
// now and usage resets to zero. In expire mode the rows are marked expired.
func (t *Tracker) RollOver(ctx context.Context, mode RolloverMode) (*RolloverResult, error) {
	if mode == "" {
		mode = RolloverRenew
	}

	ctx, span := tracer.Start(ctx, "Tracker.RollOver",
		trace.WithAttributes(attribute.String("rollover.mode", string(mode))),
	)
	defer span.End()

	var (
		result = &RolloverResult{Mode: mode}
		err    error
	)
	switch mode {
	case RolloverRenew:
		result.Renewed, err = t.renewLapsed(ctx)
	case RolloverExpire:
		result.Expired, err = t.expireLapsed(ctx)
	default:
		return nil, fmt.Errorf("invalid rollover mode %q", mode)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if t.metrics != nil {
		t.metrics.RolloverTotal.WithLabelValues(string(mode)).Add(float64(result.Renewed + result.Expired))
	}
	t.logger.WithFields(map[string]interface{}{
		"mode":    mode,
		"renewed": result.Renewed,
		"expired": result.Expired,
	}).Info("subscription rollover finished")

	return result, nil
}

func (t *Tracker) expireLapsed(ctx context.Context) (int, error) {
	now := t.now()
	query := `
		UPDATE user_subscriptions
		SET status = 'expired', ends_at = current_period_end, updated_at = $1
		WHERE status = 'active' AND current_period_end <= $1
	`
	res, err := t.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

type lapsedRow struct {
	id        int64
	planID    int64
	periodEnd time.Time
}

func (t *Tracker) renewLapsed(ctx context.Context) (int, error) {
	now := t.now()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// rows locked by an in-flight generation are picked up on the next run
	query := `
		SELECT id, plan_id, current_period_end
		FROM user_subscriptions
		WHERE status = 'active' AND current_period_end <= $1
		ORDER BY id
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list lapsed subscriptions: %w", err)
	}

	var lapsed []lapsedRow
	for rows.Next() {
		var row lapsedRow
		if err := rows.Scan(&row.id, &row.planID, &row.periodEnd); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan lapsed subscription: %w", err)
		}
		lapsed = append(lapsed, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to iterate lapsed subscriptions: %w", err)
	}
	rows.Close()

	update := `
		UPDATE user_subscriptions
		SET current_period_start = $1, current_period_end = $2, generations_used = 0, updated_at = $3
		WHERE id = $4
	`
	renewed := 0
	for _, row := range lapsed {
		plan, err := t.plans.Get(ctx, row.planID)
		if err != nil {
			return 0, fmt.Errorf("failed to load plan %d: %w", row.planID, err)
		}

		start, end := nextPeriod(plan.BillingPeriod, row.periodEnd, now)
		if _, err := tx.ExecContext(ctx, update, start, end, now, row.id); err != nil {
			return 0, fmt.Errorf("failed to renew subscription %d: %w", row.id, err)
		}
		renewed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rollover: %w", err)
	}
	return renewed, nil
}

// nextPeriod advances from the lapsed period end by whole billing periods
// until the returned period contains now.
func nextPeriod(period plans.BillingPeriod, lapsedEnd, now time.Time) (time.Time, time.Time) {
	start := lapsedEnd
	end := period.AddTo(start)
	for !now.Before(end) {
		start = end
		end = period.AddTo(start)
	}
	return start, end
}
