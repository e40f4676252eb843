package plans

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrPlanNotFound is returned when a plan does not exist or is inactive
var ErrPlanNotFound = errors.New("plan not found")

// BillingPeriod is how often a subscription renews
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

// Valid reports whether p is a known billing period
func (p BillingPeriod) Valid() bool {
	return p == BillingMonthly || p == BillingYearly
}

// AddTo returns t advanced by one billing period
func (p BillingPeriod) AddTo(t time.Time) time.Time {
	if p == BillingYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// Plan is a subscription tier. A nil GenerationLimit means unlimited
// generations per period.
type Plan struct {
	ID              int64         `json:"id" yaml:"-"`
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description,omitempty" yaml:"description"`
	PriceCents      int64         `json:"price_cents" yaml:"price_cents"`
	BillingPeriod   BillingPeriod `json:"billing_period" yaml:"billing_period"`
	GenerationLimit *int          `json:"generation_limit" yaml:"generation_limit"`
	Features        []string      `json:"features" yaml:"features"`
	IsActive        bool          `json:"is_active" yaml:"is_active"`
	SortOrder       int           `json:"sort_order" yaml:"sort_order"`
	CreatedAt       time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time     `json:"updated_at" yaml:"-"`
}

// IsUnlimited reports whether the plan never blocks generation
func (p *Plan) IsUnlimited() bool {
	return p.GenerationLimit == nil
}

// FormattedPrice renders the price as dollars, e.g. "$1,499.99"
func (p *Plan) FormattedPrice() string {
	dollars := p.PriceCents / 100
	cents := p.PriceCents % 100

	digits := strconv.FormatInt(dollars, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("$%s.%02d", b.String(), cents)
}

// Validate checks the plan fields an administrator controls
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("plan name is required")
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("plan %q: price must not be negative", p.Name)
	}
	if !p.BillingPeriod.Valid() {
		return fmt.Errorf("plan %q: invalid billing period %q", p.Name, p.BillingPeriod)
	}
	if p.GenerationLimit != nil && *p.GenerationLimit < 0 {
		return fmt.Errorf("plan %q: generation limit must not be negative", p.Name)
	}
	return nil
}

// Clone returns a deep copy safe to hand to callers
func (p *Plan) Clone() *Plan {
	c := *p
	if p.GenerationLimit != nil {
		limit := *p.GenerationLimit
		c.GenerationLimit = &limit
	}
	c.Features = append([]string(nil), p.Features...)
	return &c
}

// Limit is a convenience for building plans with a finite quota
func Limit(n int) *int {
	return &n
}
