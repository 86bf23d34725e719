package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotalsExample(t *testing.T) {
	got := ComputeTotals(
		LineTotal(decimal.NewFromInt(1000), 2),
		LineTotal(decimal.NewFromInt(500), 1),
	)
	assert.Equal(t, "2500.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "475.00", got.Tax.StringFixed(2))
	assert.Equal(t, "2975.00", got.Total.StringFixed(2))
}

func TestRoundingIsHalfUpToCents(t *testing.T) {
	// 0.50 * 0.19 = 0.095
	got := ComputeTotals(decimal.RequireFromString("0.50"))
	assert.Equal(t, "0.10", got.Tax.StringFixed(2))
	assert.Equal(t, "0.60", got.Total.StringFixed(2))

	// 3 * 0.335 = 1.005
	assert.Equal(t, "1.01", LineTotal(decimal.RequireFromString("0.335"), 3).StringFixed(2))
	assert.Equal(t, "0.01", RoundCents(decimal.RequireFromString("0.005")).StringFixed(2))
	assert.Equal(t, "0.00", RoundCents(decimal.RequireFromString("0.0049")).StringFixed(2))
}

func TestTotalIsSubtotalPlusTax(t *testing.T) {
	for _, s := range []string{"0", "1", "19.99", "1234.57", "99999.99"} {
		sub := decimal.RequireFromString(s)
		got := ComputeTotals(sub)
		assert.True(t, got.Total.Equal(got.Subtotal.Add(got.Tax)), "total for %s", s)
		assert.True(t, got.Tax.Equal(sub.Mul(TaxRate).Round(2)), "tax for %s", s)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals()
	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.Total.IsZero())
}
