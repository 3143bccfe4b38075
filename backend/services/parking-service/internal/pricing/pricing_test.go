package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateReceipt(t *testing.T) {
	got, err := Calculate(d("3.25"), d("2"))
	require.NoError(t, err)

	assert.Equal(t, "6.50", got.BaseCost.StringFixed(2))
	assert.Equal(t, "0.41", got.TaxAmount.StringFixed(2))
	assert.Equal(t, "0.49", got.ProcessingFee.StringFixed(2))
	assert.Equal(t, "7.40", got.TotalCost.StringFixed(2))
}

func TestCalculateTotalsAddUp(t *testing.T) {
	cases := []struct {
		rate     string
		duration string
	}{
		{"3.25", "0.5"},
		{"1.00", "1"},
		{"2.75", "1.5"},
		{"4.10", "3.5"},
		{"0.85", "12"},
		{"7.99", "0.75"},
		{"5.555", "2.333"},
	}

	for _, tc := range cases {
		t.Run(tc.rate+"x"+tc.duration, func(t *testing.T) {
			first, err := Calculate(d(tc.rate), d(tc.duration))
			require.NoError(t, err)

			sum := first.BaseCost.Add(first.TaxAmount).Add(first.ProcessingFee)
			assert.True(t, sum.Equal(first.TotalCost), "total %s != sum %s", first.TotalCost, sum)
			for _, part := range []decimal.Decimal{first.BaseCost, first.TaxAmount, first.ProcessingFee} {
				assert.True(t, part.Equal(Round(part)), "%s not rounded to cents", part)
			}

			again, err := Calculate(d(tc.rate), d(tc.duration))
			require.NoError(t, err)
			assertSameBreakdown(t, first, again)
		})
	}
}

func TestCalculateRejectsNonPositive(t *testing.T) {
	cases := []struct {
		name     string
		rate     string
		duration string
	}{
		{"zero rate", "0", "1"},
		{"negative rate", "-1.5", "1"},
		{"zero duration", "2", "0"},
		{"negative duration", "2", "-0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(d(tc.rate), d(tc.duration))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCustomTaxRate(t *testing.T) {
	rates := DefaultRates
	rates.TaxRate = d("0.0625")

	got, err := rates.Calculate(d("10"), d("1"))
	require.NoError(t, err)
	assert.Equal(t, "0.63", got.TaxAmount.StringFixed(2))
	assert.Equal(t, "0.59", got.ProcessingFee.StringFixed(2))
	assert.Equal(t, "11.22", got.TotalCost.StringFixed(2))
}

func TestBreakdownAddAndRefundable(t *testing.T) {
	a, err := Calculate(d("2"), d("1"))
	require.NoError(t, err)
	b, err := Calculate(d("2"), d("0.5"))
	require.NoError(t, err)

	sum := a.Add(b)
	assert.True(t, sum.BaseCost.Equal(d("3")))
	assert.True(t, sum.TotalCost.Equal(a.TotalCost.Add(b.TotalCost)))
	assert.True(t, sum.Refundable().Equal(sum.BaseCost.Add(sum.TaxAmount)))
}

func TestRatesValidate(t *testing.T) {
	assert.NoError(t, DefaultRates.Validate())

	bad := DefaultRates
	bad.ProcessingFixed = d("-0.01")
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func assertSameBreakdown(t *testing.T, want, got Breakdown) {
	t.Helper()
	assert.True(t, want.BaseCost.Equal(got.BaseCost), "base cost %s != %s", want.BaseCost, got.BaseCost)
	assert.True(t, want.TaxAmount.Equal(got.TaxAmount), "tax %s != %s", want.TaxAmount, got.TaxAmount)
	assert.True(t, want.ProcessingFee.Equal(got.ProcessingFee), "fee %s != %s", want.ProcessingFee, got.ProcessingFee)
	assert.True(t, want.TotalCost.Equal(got.TotalCost), "total %s != %s", want.TotalCost, got.TotalCost)
}
