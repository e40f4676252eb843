package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/plans"
)

func testPlan(id int64, name string, cents int64, limit *int) *plans.Plan {
	return &plans.Plan{
		ID:              id,
		Name:            name,
		PriceCents:      cents,
		BillingPeriod:   plans.BillingMonthly,
		GenerationLimit: limit,
		IsActive:        true,
	}
}

func TestListPlans(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.plans.listActiveFunc = func(ctx context.Context) ([]*plans.Plan, error) {
		return []*plans.Plan{
			testPlan(1, "Free", 0, plans.Limit(3)),
			testPlan(3, "Business", 4999, nil),
		}, nil
	}

	w := ts.do(t, "GET", "/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	decodeBody(t, w, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "Free", body[0]["name"])
	assert.Equal(t, "$0.00", body[0]["formatted_price"])
	assert.Equal(t, false, body[0]["is_unlimited"])
	assert.Equal(t, float64(3), body[0]["generation_limit"])
	assert.Equal(t, "$49.99", body[1]["formatted_price"])
	assert.Equal(t, true, body[1]["is_unlimited"])
	assert.Nil(t, body[1]["generation_limit"])
}

func TestGetSubscription(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.subscriptions.usageFunc = func(ctx context.Context, userID int64) (*entitlements.UsageSummary, error) {
		assert.Equal(t, ownerID, userID)
		remaining := 1
		return &entitlements.UsageSummary{Used: 2, Limit: plans.Limit(3), Remaining: &remaining, CanGenerate: true}, nil
	}

	w := ts.do(t, "GET", "/subscription", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decodeBody(t, w, &body)
	assert.Equal(t, float64(2), body["used"])
	assert.Equal(t, float64(1), body["remaining"])
	assert.Equal(t, true, body["can_generate"])
}

func TestSubscribe(t *testing.T) {
	pro := testPlan(2, "Pro", 1999, plans.Limit(50))

	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantError  string
	}{
		{"subscribes", SubscribeRequest{PlanID: 2}, nil, http.StatusCreated, ""},
		{"missing plan id", map[string]string{}, nil, http.StatusUnprocessableEntity, "The plan id field is required."},
		{"unknown plan", SubscribeRequest{PlanID: 99}, entitlements.ErrPlanNotFound, http.StatusNotFound, "The selected plan does not exist."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.subscriptions.subscribeFunc = func(ctx context.Context, userID, planID int64) (*entitlements.Subscription, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &entitlements.Subscription{
					ID:                 10,
					UserID:             userID,
					PlanID:             planID,
					Status:             entitlements.StatusActive,
					StartsAt:           testNow,
					CurrentPeriodStart: testNow,
					CurrentPeriodEnd:   testNow.AddDate(0, 1, 0),
					Plan:               pro,
				}, nil
			}

			w := ts.do(t, "POST", "/subscription", ownerToken, tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var body map[string]interface{}
			decodeBody(t, w, &body)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, float64(2), body["plan_id"])
			assert.Equal(t, "active", body["effective_status"])
			assert.Equal(t, float64(50), body["remaining_generations"])
			assert.Equal(t, true, body["can_generate"])
			assert.Contains(t, ts.logs.String(), `"action":"subscription.create"`)
		})
	}
}

func TestCancelSubscription(t *testing.T) {
	t.Run("cancels", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.subscriptions.cancelFunc = func(ctx context.Context, userID int64) error { return nil }

		w := ts.do(t, "DELETE", "/subscription", ownerToken, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("no active subscription", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.subscriptions.cancelFunc = func(ctx context.Context, userID int64) error {
			return entitlements.ErrNoActiveSubscription
		}

		w := ts.do(t, "DELETE", "/subscription", ownerToken, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "No active subscription found.")
	})
}

func TestSubscriptionHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	var gotLimit int
	ts.subscriptions.historyFunc = func(ctx context.Context, userID int64, limit int) ([]*entitlements.Subscription, error) {
		gotLimit = limit
		return []*entitlements.Subscription{
			{ID: 2, Status: entitlements.StatusActive, CurrentPeriodEnd: testNow.Add(-time.Hour)},
			{ID: 1, Status: entitlements.StatusCancelled, CurrentPeriodEnd: testNow.Add(-48 * time.Hour)},
		}, nil
	}

	w := ts.do(t, "GET", "/subscription/history?limit=500", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, gotLimit)

	var body []map[string]interface{}
	decodeBody(t, w, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "active", body[0]["status"])
	assert.Equal(t, "expired", body[0]["effective_status"], "lapsed active rows report expired")
	assert.Equal(t, "cancelled", body[1]["effective_status"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "GET", "/subscription/history?limit=abc", ownerToken, nil).Code)
}
