package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/plans"
)

func TestNextPeriod(t *testing.T) {
	lapsed := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	start, end := nextPeriod(plans.BillingMonthly, lapsed, fixedNow)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC), end)

	start, end = nextPeriod(plans.BillingYearly, lapsed, fixedNow)
	assert.Equal(t, lapsed, start)
	assert.Equal(t, time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC), end)
}

func TestRollOver_Renew(t *testing.T) {
	tracker, mock, metrics := setupTracker(t)

	monthlyEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	yearlyEnd := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, plan_id, current_period_end FROM user_subscriptions (.+) FOR UPDATE SKIP LOCKED").
		WithArgs(fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "current_period_end"}).
			AddRow(1, 1, monthlyEnd).
			AddRow(2, 3, yearlyEnd))
	mock.ExpectExec("UPDATE user_subscriptions SET current_period_start").
		WithArgs(monthlyEnd, monthlyEnd.AddDate(0, 1, 0), fixedNow, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_subscriptions SET current_period_start").
		WithArgs(yearlyEnd, yearlyEnd.AddDate(1, 0, 0), fixedNow, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := tracker.RollOver(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, RolloverRenew, result.Mode)
	assert.Equal(t, 2, result.Renewed)
	assert.Equal(t, 0, result.Expired)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RolloverTotal.WithLabelValues("renew")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollOver_Expire(t *testing.T) {
	tracker, mock, _ := setupTracker(t)

	mock.ExpectExec("UPDATE user_subscriptions SET status = 'expired', ends_at = current_period_end").
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 3))

	result, err := tracker.RollOver(context.Background(), RolloverExpire)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollOver_InvalidMode(t *testing.T) {
	tracker, _, _ := setupTracker(t)

	_, err := tracker.RollOver(context.Background(), "archive")
	assert.Error(t, err)
}
