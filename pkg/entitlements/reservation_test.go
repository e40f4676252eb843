package entitlements

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_CommitIncrementsInsideTransaction(t *testing.T) {
	tracker, mock, _ := setupTracker(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions (.+) FOR UPDATE").
		WithArgs(int64(7), fixedNow).
		WillReturnRows(activeRow(10, 7, 1, 4))
	mock.ExpectExec("UPDATE user_subscriptions SET generations_used = generations_used \\+ 1").
		WithArgs(fixedNow, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := tracker.db.BeginTx(ctx, nil)
	require.NoError(t, err)

	res, err := tracker.Reserve(ctx, tx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Subscription().ID)

	require.NoError(t, res.Commit(ctx))
	assert.Equal(t, 5, res.Subscription().GenerationsUsed)
	assert.ErrorIs(t, res.Commit(ctx), ErrReservationCommitted)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_LimitReached(t *testing.T) {
	tracker, mock, _ := setupTracker(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").WillReturnRows(activeRow(10, 7, 1, 5))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := tracker.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tracker.Reserve(ctx, tx, 7)
	assert.True(t, IsLimitExceeded(err))
}

func TestReserve_NoSubscription(t *testing.T) {
	tracker, mock, _ := setupTracker(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").WillReturnRows(sqlmock.NewRows(subscriptionCols))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := tracker.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tracker.Reserve(ctx, tx, 7)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}
