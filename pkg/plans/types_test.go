package plans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormattedPrice(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{1999, "$19.99"},
		{49999, "$499.99"},
		{100000, "$1,000.00"},
		{123456789, "$1,234,567.89"},
	}
	for _, tt := range tests {
		p := &Plan{PriceCents: tt.cents}
		assert.Equal(t, tt.want, p.FormattedPrice())
	}
}

func TestBillingPeriod_AddTo(t *testing.T) {
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), BillingMonthly.AddTo(start))
	assert.Equal(t, time.Date(2027, 1, 31, 10, 0, 0, 0, time.UTC), BillingYearly.AddTo(start))
}

func TestPlan_Validate(t *testing.T) {
	valid := Plan{Name: "Pro", PriceCents: 1999, BillingPeriod: BillingMonthly, GenerationLimit: Limit(50)}
	assert.NoError(t, valid.Validate())

	cases := map[string]Plan{
		"plan name is required":      {BillingPeriod: BillingMonthly},
		"price must not be negative": {Name: "X", PriceCents: -1, BillingPeriod: BillingMonthly},
		"invalid billing period":     {Name: "X", BillingPeriod: "weekly"},
		"limit must not be negative": {Name: "X", BillingPeriod: BillingYearly, GenerationLimit: Limit(-1)},
	}
	for want, plan := range cases {
		err := plan.Validate()
		assert.ErrorContains(t, err, want)
	}
}

func TestPlan_CloneIsDeep(t *testing.T) {
	p := &Plan{Name: "Pro", GenerationLimit: Limit(50), Features: []string{"a"}}
	c := p.Clone()

	*c.GenerationLimit = 1
	c.Features[0] = "b"

	assert.Equal(t, 50, *p.GenerationLimit)
	assert.Equal(t, "a", p.Features[0])
	assert.True(t, (&Plan{}).IsUnlimited())
	assert.False(t, p.IsUnlimited())
}
