// Package pricing turns an hourly rate and a duration into a receipt-ready cost breakdown.
//
// Every component is rounded to cents before it is summed, so a breakdown recomputed from
// the same inputs always reproduces the same receipt.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for non-positive rates or durations.
var ErrInvalidInput = errors.New("pricing: invalid input")

const centsPlaces = 2

// Rates holds the tax and card-processing parameters applied to every purchase.
type Rates struct {
	TaxRate         decimal.Decimal `json:"tax_rate"`
	ProcessingRate  decimal.Decimal `json:"processing_rate"`
	ProcessingFixed decimal.Decimal `json:"processing_fixed"`
}

// DefaultRates is 6.35% sales tax and a 2.9% + $0.30 card fee.
var DefaultRates = Rates{
	TaxRate:         decimal.RequireFromString("0.0635"),
	ProcessingRate:  decimal.RequireFromString("0.029"),
	ProcessingFixed: decimal.RequireFromString("0.30"),
}

// Validate rejects negative rates.
func (r Rates) Validate() error {
	if r.TaxRate.IsNegative() || r.ProcessingRate.IsNegative() || r.ProcessingFixed.IsNegative() {
		return fmt.Errorf("%w: rates must not be negative", ErrInvalidInput)
	}
	return nil
}

// Breakdown is the itemised cost of a parking purchase.
type Breakdown struct {
	BaseCost      decimal.Decimal `json:"base_cost"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// Add sums two breakdowns field by field.
func (b Breakdown) Add(other Breakdown) Breakdown {
	return Breakdown{
		BaseCost:      b.BaseCost.Add(other.BaseCost),
		TaxAmount:     b.TaxAmount.Add(other.TaxAmount),
		ProcessingFee: b.ProcessingFee.Add(other.ProcessingFee),
		TotalCost:     b.TotalCost.Add(other.TotalCost),
	}
}

// Refundable is the part of a purchase that can be returned: base cost plus tax.
func (b Breakdown) Refundable() decimal.Decimal {
	return b.BaseCost.Add(b.TaxAmount)
}

// Calculate prices durationHours of parking at ratePerHour.
func (r Rates) Calculate(ratePerHour, durationHours decimal.Decimal) (Breakdown, error) {
	if !ratePerHour.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: rate per hour must be positive, got %s", ErrInvalidInput, ratePerHour)
	}
	if !durationHours.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidInput, durationHours)
	}

	base := Round(ratePerHour.Mul(durationHours))
	tax := Round(base.Mul(r.TaxRate))
	fee := Round(base.Mul(r.ProcessingRate).Add(r.ProcessingFixed))

	return Breakdown{
		BaseCost:      base,
		TaxAmount:     tax,
		ProcessingFee: fee,
		TotalCost:     base.Add(tax).Add(fee),
	}, nil
}

// Calculate prices a purchase with DefaultRates.
func Calculate(ratePerHour, durationHours decimal.Decimal) (Breakdown, error) {
	return DefaultRates.Calculate(ratePerHour, durationHours)
}

// Round rounds a currency amount to cents, half away from zero.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(centsPlaces)
}
