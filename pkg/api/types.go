package api

import (
	"time"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/entitlements"
	"github.com/platinummonkey/laman/pkg/pages"
	"github.com/platinummonkey/laman/pkg/plans"
)

// HealthResponse is the body of GET /health-check
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// PlanResponse is a plan as listed to subscribers
type PlanResponse struct {
	*plans.Plan
	FormattedPrice string `json:"formatted_price"`
	IsUnlimited    bool   `json:"is_unlimited"`
}

func newPlanResponse(plan *plans.Plan) PlanResponse {
	return PlanResponse{
		Plan:           plan,
		FormattedPrice: plan.FormattedPrice(),
		IsUnlimited:    plan.IsUnlimited(),
	}
}

// SubscribeRequest is the body of POST /subscription
type SubscribeRequest struct {
	PlanID int64 `json:"plan_id"`
}

// SubscriptionResponse is a subscription with its status as of the request
type SubscriptionResponse struct {
	*entitlements.Subscription
	EffectiveStatus entitlements.Status `json:"effective_status"`
	Remaining       *int                `json:"remaining_generations"`
	CanGenerate     bool                `json:"can_generate"`
}

func newSubscriptionResponse(sub *entitlements.Subscription, now time.Time) SubscriptionResponse {
	return SubscriptionResponse{
		Subscription:    sub,
		EffectiveStatus: sub.EffectiveStatus(now),
		Remaining:       sub.Remaining(),
		CanGenerate:     sub.IsActiveAt(now) && sub.CanGenerate(),
	}
}

// LimitExceededResponse is the 402 body for a refused generation
type LimitExceededResponse struct {
	Error string `json:"error"`
	Limit int    `json:"limit"`
	Used  int    `json:"used"`
	Plan  string `json:"plan,omitempty"`
}

func newLimitExceededResponse(err *entitlements.LimitExceededError) LimitExceededResponse {
	return LimitExceededResponse{
		Error: "You have reached your page generation limit for this period.",
		Limit: err.Limit,
		Used:  err.Used,
		Plan:  err.Plan,
	}
}

// GeneratorIndexResponse is the body of GET /generate
type GeneratorIndexResponse struct {
	Usage       *entitlements.UsageSummary `json:"usage"`
	RecentPages []pages.Summary            `json:"recent_pages"`
}

// ExportResponse is the 202 body of POST /pages/{id}/export
type ExportResponse struct {
	pages.Export
	Status string `json:"status"`
}

// CreateTokenRequest is the body of POST /tokens
type CreateTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateTokenResponse carries the raw token, shown only once
type CreateTokenResponse struct {
	Token    string         `json:"token"`
	APIToken *auth.APIToken `json:"api_token"`
}
