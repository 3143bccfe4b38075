package models

import (
	"time"

	"github.com/shopspring/decimal"

	"parkpay/backend/services/parking-service/internal/pricing"
)

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionActive    SessionStatus = "ACTIVE"
	SessionExtended  SessionStatus = "EXTENDED"
	SessionExpired   SessionStatus = "EXPIRED"
	SessionCompleted SessionStatus = "COMPLETED"
)

// Running reports whether the vehicle is currently parked on a paid session.
func (s SessionStatus) Running() bool {
	return s == SessionActive || s == SessionExtended
}

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionExpired || s == SessionCompleted
}

// Session is one parked-vehicle billing period. Cost fields accumulate the initial purchase
// and every extension.
type Session struct {
	ID               int64           `db:"id" json:"id"`
	Reference        string          `db:"reference" json:"reference"`
	UserID           int64           `db:"user_id" json:"user_id"`
	VehicleID        int64           `db:"vehicle_id" json:"vehicle_id"`
	ZoneID           int64           `db:"zone_id" json:"zone_id"`
	RatePerHour      decimal.Decimal `db:"rate_per_hour" json:"rate_per_hour"`
	DurationHours    decimal.Decimal `db:"duration_hours" json:"duration_hours"`
	StartTime        time.Time       `db:"start_time" json:"start_time"`
	ScheduledEndTime time.Time       `db:"scheduled_end_time" json:"scheduled_end_time"`
	EndTime          *time.Time      `db:"end_time" json:"end_time,omitempty"`
	BaseCost         decimal.Decimal `db:"base_cost" json:"base_cost"`
	TaxAmount        decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	ProcessingFee    decimal.Decimal `db:"processing_fee" json:"processing_fee"`
	TotalCost        decimal.Decimal `db:"total_cost" json:"total_cost"`
	RefundAmount     decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	Status           SessionStatus   `db:"status" json:"status"`
	PaymentRef       string          `db:"payment_ref" json:"payment_ref,omitempty"`
	Version          int64           `db:"version" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Paid returns what has been charged so far as a breakdown.
func (s *Session) Paid() pricing.Breakdown {
	return pricing.Breakdown{
		BaseCost:      s.BaseCost,
		TaxAmount:     s.TaxAmount,
		ProcessingFee: s.ProcessingFee,
		TotalCost:     s.TotalCost,
	}
}

// SetPaid overwrites the cost fields.
func (s *Session) SetPaid(b pricing.Breakdown) {
	s.BaseCost = b.BaseCost
	s.TaxAmount = b.TaxAmount
	s.ProcessingFee = b.ProcessingFee
	s.TotalCost = b.TotalCost
}

// Remaining is the time left before the scheduled end, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	left := s.ScheduledEndTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
