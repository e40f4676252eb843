package entitlements

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/laman/pkg/plans"
)

// Status is the persisted state of a subscription
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription ties a user to a plan for a billing period and counts the
// generations used in that period.
type Subscription struct {
	ID                 int64       `json:"id"`
	UserID             int64       `json:"user_id"`
	PlanID             int64       `json:"plan_id"`
	Status             Status      `json:"status"`
	StartsAt           time.Time   `json:"starts_at"`
	EndsAt             *time.Time  `json:"ends_at,omitempty"`
	CurrentPeriodStart time.Time   `json:"current_period_start"`
	CurrentPeriodEnd   time.Time   `json:"current_period_end"`
	GenerationsUsed    int         `json:"generations_used"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Plan               *plans.Plan `json:"plan,omitempty"`
}

// IsActiveAt reports whether the subscription grants access at now
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.CurrentPeriodEnd)
}

// EffectiveStatus is the status callers should show: an active row whose
// period has lapsed without being rolled over is reported as expired.
func (s *Subscription) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusActive && !now.Before(s.CurrentPeriodEnd) {
		return StatusExpired
	}
	return s.Status
}

// CanGenerate reports whether one more generation fits the plan's limit.
// It does not check the period; use IsActiveAt for that.
func (s *Subscription) CanGenerate() bool {
	if s.Plan == nil {
		return false
	}
	if s.Plan.IsUnlimited() {
		return true
	}
	return s.GenerationsUsed < *s.Plan.GenerationLimit
}

// Remaining returns the generations left this period, or nil when unlimited
func (s *Subscription) Remaining() *int {
	if s.Plan == nil {
		zero := 0
		return &zero
	}
	if s.Plan.IsUnlimited() {
		return nil
	}
	remaining := max(0, *s.Plan.GenerationLimit-s.GenerationsUsed)
	return &remaining
}

// UsageSummary is the quota read model shown on the dashboard and generator
type UsageSummary struct {
	Subscription *Subscription `json:"subscription"`
	Used         int           `json:"used"`
	Limit        *int          `json:"limit"`
	Remaining    *int          `json:"remaining"`
	CanGenerate  bool          `json:"can_generate"`
	PeriodEnd    *time.Time    `json:"period_end,omitempty"`
}

// RolloverMode decides what happens to subscriptions whose period ended
type RolloverMode string

const (
	// RolloverRenew starts a new period with usage reset to zero
	RolloverRenew RolloverMode = "renew"
	// RolloverExpire marks the subscription expired
	RolloverExpire RolloverMode = "expire"
)

// ParseRolloverMode parses "renew" or "expire"; empty means renew
func ParseRolloverMode(s string) (RolloverMode, error) {
	switch RolloverMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RolloverRenew:
		return RolloverRenew, nil
	case RolloverExpire:
		return RolloverExpire, nil
	default:
		return "", fmt.Errorf("invalid rollover mode %q", s)
	}
}

// RolloverResult counts the subscriptions a rollover touched
type RolloverResult struct {
	Mode    RolloverMode `json:"mode"`
	Renewed int          `json:"renewed"`
	Expired int          `json:"expired"`
}
