package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrReservationCommitted is returned by a second Commit of the same Reservation
var ErrReservationCommitted = errors.New("reservation already committed")

// Reservation holds a row lock on a user's active subscription inside the
// caller's transaction. Committing it charges one generation; rolling back
// the transaction releases it with no usage recorded.
type Reservation struct {
	tx           *sql.Tx
	subscription *Subscription
	committed    bool
}

// Subscription returns the locked subscription with its plan
func (r *Reservation) Subscription() *Subscription {
	return r.subscription
}

// Commit increments usage on the reserved subscription. The caller still
// owns the transaction and must commit it.
func (r *Reservation) Commit(ctx context.Context) error {
	if r.committed {
		return ErrReservationCommitted
	}

	query := `
		UPDATE user_subscriptions
		SET generations_used = generations_used + 1, updated_at = $1
		WHERE id = $2
	`
	result, err := r.tx.ExecContext(ctx, query, r.subscription.UpdatedAt, r.subscription.ID)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoActiveSubscription
	}

	r.committed = true
	r.subscription.GenerationsUsed++
	return nil
}

// Reserve locks the user's active subscription with SELECT ... FOR UPDATE
// and checks that one more generation fits. Concurrent reservations for
// the same subscription wait on the lock, so the check and the later
// increment cannot interleave.
func (t *Tracker) Reserve(ctx context.Context, tx *sql.Tx, userID int64) (*Reservation, error) {
	ctx, span := tracer.Start(ctx, "Tracker.Reserve",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	sub, err := t.activeSubscription(ctx, tx, userID, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}
	if !sub.CanGenerate() {
		t.recordRejection(ctx, sub)
		return nil, limitExceeded(sub)
	}

	sub.UpdatedAt = t.now()
	return &Reservation{tx: tx, subscription: sub}, nil
}
