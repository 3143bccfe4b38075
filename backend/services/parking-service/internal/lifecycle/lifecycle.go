// Package lifecycle holds the decisions taken on a parking session: opening it, activating
// it after payment, extending it, terminating it early and expiring it. All functions are
// pure with respect to I/O; callers charge, refund and persist after a decision succeeds.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/pricing"
)

var (
	// ErrInvalidInput covers non-positive or mis-stepped hours and mismatched zones.
	ErrInvalidInput = pricing.ErrInvalidInput
	// ErrMaxDurationReached is returned when a duration would pass the zone cap.
	ErrMaxDurationReached = errors.New("lifecycle: zone maximum duration reached")
	// ErrInvalidState is returned when the session status does not allow the operation.
	ErrInvalidState = errors.New("lifecycle: invalid session state")
)

var (
	// Increment is the smallest purchasable step.
	Increment = decimal.RequireFromString("0.5")
	// MinimumChargeHours is the floor applied to time used when refunding.
	MinimumChargeHours = decimal.RequireFromString("0.5")

	extensionSteps = []decimal.Decimal{
		decimal.RequireFromString("0.5"),
		decimal.NewFromInt(1),
		decimal.NewFromInt(2),
		decimal.NewFromInt(4),
	}
	hour = decimal.NewFromInt(int64(time.Hour))
)

// HoursToDuration converts decimal hours to a time.Duration.
func HoursToDuration(hours decimal.Decimal) time.Duration {
	return time.Duration(hours.Mul(hour).IntPart())
}

// HoursBetween returns the decimal hours from start to end, negative when end is earlier.
func HoursBetween(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(end.Sub(start))).Div(hour)
}

func checkHours(hours decimal.Decimal) error {
	if !hours.IsPositive() {
		return fmt.Errorf("%w: hours must be positive, got %s", ErrInvalidInput, hours)
	}
	if !hours.Mod(Increment).IsZero() {
		return fmt.Errorf("%w: hours must be a multiple of %s, got %s", ErrInvalidInput, Increment, hours)
	}
	return nil
}

// ValidateDuration checks a purchase length against the zone.
func ValidateDuration(zone models.Zone, hours decimal.Decimal) error {
	if err := checkHours(hours); err != nil {
		return err
	}
	if hours.GreaterThan(zone.MaxDurationHours) {
		return fmt.Errorf("%w: %s hours exceeds zone %s cap of %s", ErrMaxDurationReached, hours, zone.Code, zone.MaxDurationHours)
	}
	return nil
}

// Open builds a PENDING session for a checkout at now.
func Open(zone models.Zone, userID, vehicleID int64, hours decimal.Decimal, now time.Time, rates pricing.Rates) (*models.Session, error) {
	if !zone.Active {
		return nil, fmt.Errorf("%w: zone %s is not active", ErrInvalidInput, zone.Code)
	}
	if err := ValidateDuration(zone, hours); err != nil {
		return nil, err
	}
	cost, err := rates.Calculate(zone.RatePerHour, hours)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	s := &models.Session{
		UserID:           userID,
		VehicleID:        vehicleID,
		ZoneID:           zone.ID,
		RatePerHour:      zone.RatePerHour,
		DurationHours:    hours,
		StartTime:        now,
		ScheduledEndTime: now.Add(HoursToDuration(hours)),
		RefundAmount:     decimal.Zero,
		Status:           models.SessionPending,
	}
	s.SetPaid(cost)
	return s, nil
}

// Activate moves a PENDING session to ACTIVE once payment is confirmed. The paid period
// starts at confirmation time.
func Activate(s *models.Session, now time.Time) error {
	if s.Status != models.SessionPending {
		return fmt.Errorf("%w: cannot activate %s session", ErrInvalidState, s.Status)
	}
	now = now.UTC()
	s.StartTime = now
	s.ScheduledEndTime = now.Add(HoursToDuration(s.DurationHours))
	s.Status = models.SessionActive
	return nil
}

// Refresh expires the session if its scheduled end has passed and reports whether the
// status changed. COMPLETED and EXPIRED sessions are left alone.
func Refresh(s *models.Session, now time.Time) bool {
	if s.Status.Terminal() {
		return false
	}
	if now.Before(s.ScheduledEndTime) {
		return false
	}
	s.Status = models.SessionExpired
	return true
}

// NeedsWarning reports whether a running session ends within window of now.
func NeedsWarning(s *models.Session, now time.Time, window time.Duration) bool {
	if !s.Status.Running() || !now.Before(s.ScheduledEndTime) {
		return false
	}
	return s.ScheduledEndTime.Sub(now) <= window
}

func requireRunning(s *models.Session, now time.Time, op string) error {
	Refresh(s, now)
	if !s.Status.Running() {
		return fmt.Errorf("%w: cannot %s %s session", ErrInvalidState, op, s.Status)
	}
	return nil
}

// MaxAdditionalHours is how much longer the session may run inside the zone cap.
func MaxAdditionalHours(s *models.Session, zone models.Zone) decimal.Decimal {
	return zone.MaxDurationHours.Sub(s.DurationHours)
}

// ExtensionOptions lists the standard extension steps that still fit in the zone cap.
func ExtensionOptions(s *models.Session, zone models.Zone) ([]decimal.Decimal, error) {
	limit := MaxAdditionalHours(s, zone)
	if !limit.IsPositive() {
		return nil, fmt.Errorf("%w: session %d already at %s hours", ErrMaxDurationReached, s.ID, s.DurationHours)
	}
	options := make([]decimal.Decimal, 0, len(extensionSteps))
	for _, step := range extensionSteps {
		if step.LessThanOrEqual(limit) {
			options = append(options, step)
		}
	}
	return options, nil
}

// Extension is an accepted extension that has not been applied yet.
type Extension struct {
	AdditionalHours     decimal.Decimal   `json:"additional_hours"`
	NewDurationHours    decimal.Decimal   `json:"new_duration_hours"`
	NewScheduledEndTime time.Time         `json:"new_scheduled_end_time"`
	Cost                pricing.Breakdown `json:"cost"`
}

// PlanExtension decides whether additional hours may be bought and what they cost. Only the
// additional hours are priced.
func PlanExtension(s *models.Session, zone models.Zone, additional decimal.Decimal, now time.Time, rates pricing.Rates) (Extension, error) {
	if zone.ID != s.ZoneID {
		return Extension{}, fmt.Errorf("%w: zone %d does not own session %d", ErrInvalidInput, zone.ID, s.ID)
	}
	if err := requireRunning(s, now, "extend"); err != nil {
		return Extension{}, err
	}
	if err := checkHours(additional); err != nil {
		return Extension{}, err
	}

	limit := MaxAdditionalHours(s, zone)
	if !limit.IsPositive() || additional.GreaterThan(limit) {
		return Extension{}, fmt.Errorf("%w: %s more hours allowed, %s requested", ErrMaxDurationReached, decimal.Max(limit, decimal.Zero), additional)
	}

	cost, err := rates.Calculate(s.RatePerHour, additional)
	if err != nil {
		return Extension{}, err
	}
	return Extension{
		AdditionalHours:     additional,
		NewDurationHours:    s.DurationHours.Add(additional),
		NewScheduledEndTime: s.ScheduledEndTime.Add(HoursToDuration(additional)),
		Cost:                cost,
	}, nil
}

// ApplyExtension records a paid extension on the session.
func ApplyExtension(s *models.Session, ext Extension) {
	s.DurationHours = ext.NewDurationHours
	s.ScheduledEndTime = ext.NewScheduledEndTime
	s.SetPaid(s.Paid().Add(ext.Cost))
	s.Status = models.SessionExtended
}

// Refund is the money owed back when a session ends early.
type Refund struct {
	TimeUsedHours   decimal.Decimal   `json:"time_used_hours"`
	ChargeableHours decimal.Decimal   `json:"chargeable_hours"`
	ShouldPay       pricing.Breakdown `json:"should_pay"`
	Amount          decimal.Decimal   `json:"amount"`
}

// PlanRefund computes the refund for ending s at now. Time used is floored at the 30-minute
// minimum charge; the processing fee is never returned.
func PlanRefund(s *models.Session, now time.Time, rates pricing.Rates) (Refund, error) {
	used := decimal.Max(decimal.Zero, HoursBetween(s.StartTime, now))
	chargeable := decimal.Max(MinimumChargeHours, used)

	r := Refund{
		TimeUsedHours:   used,
		ChargeableHours: chargeable,
		Amount:          decimal.Zero,
	}
	if chargeable.GreaterThanOrEqual(s.DurationHours) {
		r.ShouldPay = s.Paid()
		return r, nil
	}

	should, err := rates.Calculate(s.RatePerHour, chargeable)
	if err != nil {
		return Refund{}, err
	}
	r.ShouldPay = should
	r.Amount = pricing.Round(decimal.Max(decimal.Zero, s.Paid().Refundable().Sub(should.Refundable())))
	return r, nil
}

// PlanTermination checks that s can be ended at now and computes its refund.
func PlanTermination(s *models.Session, now time.Time, rates pricing.Rates) (Refund, error) {
	if err := requireRunning(s, now, "terminate"); err != nil {
		return Refund{}, err
	}
	return PlanRefund(s, now, rates)
}

// ApplyTermination completes the session at now.
func ApplyTermination(s *models.Session, refund Refund, now time.Time) {
	end := now.UTC()
	s.EndTime = &end
	s.RefundAmount = refund.Amount
	s.Status = models.SessionCompleted
}
