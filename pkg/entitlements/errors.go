package entitlements

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/laman/pkg/plans"
)

var (
	// ErrPlanNotFound is returned when subscribing to a missing or inactive plan
	ErrPlanNotFound = plans.ErrPlanNotFound

	// ErrNoActiveSubscription is returned when the user has no subscription
	// granting access right now
	ErrNoActiveSubscription = errors.New("no active subscription found")

	// ErrLimitExceeded matches every *LimitExceededError via errors.Is
	ErrLimitExceeded = errors.New("generation limit reached")
)

// LimitExceededError reports a generation refused because the plan's
// quota for the current period is used up.
type LimitExceededError struct {
	Plan  string
	Used  int
	Limit int
}

func (e *LimitExceededError) Error() string {
	if e.Plan == "" {
		return "generation limit reached: no active subscription"
	}
	return fmt.Sprintf("generation limit reached for plan %s (%d/%d)", e.Plan, e.Used, e.Limit)
}

// Is lets errors.Is(err, ErrLimitExceeded) match
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// IsLimitExceeded checks if an error is a limit exceeded error
func IsLimitExceeded(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}

// NoSubscriptionLimit is the quota error for a user with no active
// subscription, who has zero generations available.
func NoSubscriptionLimit() *LimitExceededError {
	return &LimitExceededError{}
}

func limitExceeded(sub *Subscription) *LimitExceededError {
	e := &LimitExceededError{Used: sub.GenerationsUsed}
	if sub.Plan != nil {
		e.Plan = sub.Plan.Name
		if sub.Plan.GenerationLimit != nil {
			e.Limit = *sub.Plan.GenerationLimit
		}
	}
	return e
}
