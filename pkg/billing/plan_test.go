package billing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	assert.Contains(t, billing.FormatAmount(999, "usd"), "9.99")
	assert.Contains(t, billing.FormatAmount(500, "jpy"), "500")
	assert.NotContains(t, billing.FormatAmount(500, "jpy"), ".")
	assert.Equal(t, "42 XYZ1", billing.FormatAmount(42, "xyz1"))
}

func TestPlanDisplayPrice(t *testing.T) {
	t.Parallel()

	monthly := billing.Plan{Amount: 999, Currency: "usd", Interval: billing.IntervalMonth, IntervalCount: 1}
	assert.True(t, strings.HasSuffix(monthly.DisplayPrice(), " / month"))
	assert.Contains(t, monthly.DisplayPrice(), "9.99")
	assert.False(t, monthly.IsFree())

	quarterly := billing.Plan{Amount: 0, Currency: "usd", Interval: billing.IntervalMonth, IntervalCount: 3}
	assert.True(t, strings.HasSuffix(quarterly.DisplayPrice(), " / 3 months"))
	assert.True(t, quarterly.IsFree())
}

func TestParsePlanCatalog(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		plans, err := billing.ParsePlanCatalog(strings.NewReader(`
plans:
  - id: pro
    name: Pro
    amount: 1900
    currency: EUR
    interval: month
    interval_count: 3
    active: true
`))
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "eur", plans[0].Currency)
		assert.Equal(t, int64(3), plans[0].IntervalCount)
	})

	tests := map[string]string{
		"unknown field": "plans:\n  - id: a\n    price: 1\n",
		"missing id":    "plans:\n  - name: A\n    currency: usd\n    interval: month\n",
		"bad interval":  "plans:\n  - id: a\n    currency: usd\n    interval: fortnight\n",
		"bad currency":  "plans:\n  - id: a\n    currency: zzzz\n    interval: month\n",
		"duplicate id":  "plans:\n  - id: a\n    currency: usd\n    interval: month\n  - id: a\n    currency: usd\n    interval: month\n",
		"negative":      "plans:\n  - id: a\n    amount: -1\n    currency: usd\n    interval: month\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := billing.ParsePlanCatalog(strings.NewReader(doc))
			assert.ErrorIs(t, err, billing.ErrInvalidPlan)
		})
	}
}
