package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/pricing"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testZone(maxHours string) models.Zone {
	return models.Zone{
		ID:               7,
		Code:             "DT-1",
		Name:             "Downtown",
		RatePerHour:      d("3.25"),
		MaxDurationHours: d(maxHours),
		LocationType:     models.LocationStreet,
		Active:           true,
	}
}

func activeSession(t *testing.T, zone models.Zone, hours string) *models.Session {
	t.Helper()
	s, err := Open(zone, 1, 2, d(hours), t0.Add(-time.Minute), pricing.DefaultRates)
	require.NoError(t, err)
	require.NoError(t, Activate(s, t0))
	return s
}

func TestOpenAndActivate(t *testing.T) {
	zone := testZone("4")
	s, err := Open(zone, 1, 2, d("2"), t0, pricing.DefaultRates)
	require.NoError(t, err)

	assert.Equal(t, models.SessionPending, s.Status)
	assert.Equal(t, "7.40", s.TotalCost.StringFixed(2))
	assert.True(t, s.RefundAmount.IsZero())

	later := t0.Add(3 * time.Minute)
	require.NoError(t, Activate(s, later))
	assert.Equal(t, models.SessionActive, s.Status)
	assert.Equal(t, later, s.StartTime)
	assert.Equal(t, later.Add(2*time.Hour), s.ScheduledEndTime)

	assert.ErrorIs(t, Activate(s, later), ErrInvalidState)
}

func TestOpenValidatesDuration(t *testing.T) {
	zone := testZone("3")
	cases := []struct {
		name  string
		hours string
		want  error
	}{
		{"zero", "0", ErrInvalidInput},
		{"negative", "-1", ErrInvalidInput},
		{"off increment", "1.25", ErrInvalidInput},
		{"over cap", "3.5", ErrMaxDurationReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(zone, 1, 2, d(tc.hours), t0, pricing.DefaultRates)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := Open(zone, 1, 2, d("3"), t0, pricing.DefaultRates)
	assert.NoError(t, err)

	zone.Active = false
	_, err = Open(zone, 1, 2, d("1"), t0, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExtensionOptions(t *testing.T) {
	cases := []struct {
		max     string
		current string
		want    []string
	}{
		{"8", "2", []string{"0.5", "1", "2", "4"}},
		{"4", "2", []string{"0.5", "1", "2"}},
		{"3", "2", []string{"0.5", "1"}},
		{"2.5", "2", []string{"0.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.max+"-"+tc.current, func(t *testing.T) {
			s := activeSession(t, testZone(tc.max), tc.current)
			opts, err := ExtensionOptions(s, testZone(tc.max))
			require.NoError(t, err)
			got := make([]string, 0, len(opts))
			for _, o := range opts {
				got = append(got, o.String())
			}
			assert.Equal(t, tc.want, got)
		})
	}

	s := activeSession(t, testZone("2"), "2")
	_, err := ExtensionOptions(s, testZone("2"))
	assert.ErrorIs(t, err, ErrMaxDurationReached)
}

func TestPlanExtension(t *testing.T) {
	zone := testZone("4.5")
	s := activeSession(t, zone, "2")
	now := t0.Add(30 * time.Minute)

	_, err := PlanExtension(s, zone, d("3"), now, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrMaxDurationReached)

	_, err = PlanExtension(s, zone, d("0.3"), now, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidInput)

	ext, err := PlanExtension(s, zone, d("2.5"), now, pricing.DefaultRates)
	require.NoError(t, err)
	assert.True(t, ext.NewDurationHours.Equal(d("4.5")))
	assert.Equal(t, t0.Add(4*time.Hour+30*time.Minute), ext.NewScheduledEndTime)

	want, err := pricing.Calculate(d("3.25"), d("2.5"))
	require.NoError(t, err)
	assert.True(t, ext.Cost.TotalCost.Equal(want.TotalCost))

	before := s.TotalCost
	ApplyExtension(s, ext)
	assert.Equal(t, models.SessionExtended, s.Status)
	assert.True(t, s.TotalCost.Equal(before.Add(want.TotalCost)))
	assert.True(t, s.DurationHours.Equal(d("4.5")))

	_, err = PlanExtension(s, zone, d("0.5"), now, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrMaxDurationReached)
}

func TestPlanExtensionRejectsWrongState(t *testing.T) {
	zone := testZone("8")

	pending, err := Open(zone, 1, 2, d("1"), t0, pricing.DefaultRates)
	require.NoError(t, err)
	_, err = PlanExtension(pending, zone, d("1"), t0, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidState)

	s := activeSession(t, zone, "1")
	_, err = PlanExtension(s, zone, d("1"), t0.Add(time.Hour), pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.SessionExpired, s.Status)

	other := zone
	other.ID = 99
	fresh := activeSession(t, zone, "1")
	_, err = PlanExtension(fresh, other, d("1"), t0, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlanRefund(t *testing.T) {
	zone := testZone("4")

	t.Run("after 45 minutes", func(t *testing.T) {
		s := activeSession(t, zone, "2")
		r, err := PlanRefund(s, t0.Add(45*time.Minute), pricing.DefaultRates)
		require.NoError(t, err)
		assert.Equal(t, "0.75", r.ChargeableHours.String())
		assert.Equal(t, "2.44", r.ShouldPay.BaseCost.StringFixed(2))
		assert.Equal(t, "0.15", r.ShouldPay.TaxAmount.StringFixed(2))
		assert.Equal(t, "4.32", r.Amount.StringFixed(2))
	})

	t.Run("immediately", func(t *testing.T) {
		s := activeSession(t, zone, "2")
		r, err := PlanRefund(s, t0, pricing.DefaultRates)
		require.NoError(t, err)
		assert.True(t, r.ChargeableHours.Equal(d("0.5")))
		assert.Equal(t, "5.18", r.Amount.StringFixed(2))
	})

	t.Run("clock skew", func(t *testing.T) {
		s := activeSession(t, zone, "2")
		r, err := PlanRefund(s, t0.Add(-10*time.Minute), pricing.DefaultRates)
		require.NoError(t, err)
		assert.True(t, r.TimeUsedHours.IsZero())
		assert.True(t, r.ChargeableHours.Equal(d("0.5")))
	})

	t.Run("full duration used", func(t *testing.T) {
		s := activeSession(t, zone, "2")
		r, err := PlanRefund(s, t0.Add(2*time.Hour), pricing.DefaultRates)
		require.NoError(t, err)
		assert.True(t, r.Amount.IsZero())
	})

	t.Run("half hour session", func(t *testing.T) {
		s := activeSession(t, zone, "0.5")
		r, err := PlanRefund(s, t0, pricing.DefaultRates)
		require.NoError(t, err)
		assert.True(t, r.Amount.IsZero())
	})

	t.Run("processing fee kept", func(t *testing.T) {
		s := activeSession(t, zone, "4")
		r, err := PlanRefund(s, t0.Add(time.Hour), pricing.DefaultRates)
		require.NoError(t, err)
		maxRefund := s.BaseCost.Add(s.TaxAmount)
		assert.True(t, r.Amount.LessThan(maxRefund))
		assert.True(t, r.Amount.Equal(maxRefund.Sub(r.ShouldPay.Refundable())))
	})
}

func TestChargeableHoursFloor(t *testing.T) {
	s := activeSession(t, testZone("8"), "8")
	for _, offset := range []time.Duration{-time.Hour, 0, time.Minute, 29 * time.Minute, 31 * time.Minute, 5 * time.Hour} {
		r, err := PlanRefund(s, t0.Add(offset), pricing.DefaultRates)
		require.NoError(t, err)
		assert.True(t, r.ChargeableHours.GreaterThanOrEqual(MinimumChargeHours), "offset %s", offset)
		assert.False(t, r.Amount.IsNegative())
	}
}

func TestTermination(t *testing.T) {
	zone := testZone("4")
	s := activeSession(t, zone, "2")
	now := t0.Add(45 * time.Minute)

	r, err := PlanTermination(s, now, pricing.DefaultRates)
	require.NoError(t, err)
	ApplyTermination(s, r, now)

	assert.Equal(t, models.SessionCompleted, s.Status)
	require.NotNil(t, s.EndTime)
	assert.Equal(t, now, *s.EndTime)
	assert.Equal(t, "4.32", s.RefundAmount.StringFixed(2))

	_, err = PlanTermination(s, now, pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTerminationOfExpiredSession(t *testing.T) {
	s := activeSession(t, testZone("4"), "1")
	_, err := PlanTermination(s, t0.Add(time.Hour), pricing.DefaultRates)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.SessionExpired, s.Status)
}

func TestRefresh(t *testing.T) {
	zone := testZone("4")

	s := activeSession(t, zone, "1")
	assert.False(t, Refresh(s, t0.Add(59*time.Minute)))
	assert.Equal(t, models.SessionActive, s.Status)
	assert.True(t, Refresh(s, t0.Add(time.Hour)))
	assert.Equal(t, models.SessionExpired, s.Status)
	assert.False(t, Refresh(s, t0.Add(2*time.Hour)))

	pending, err := Open(zone, 1, 2, d("1"), t0, pricing.DefaultRates)
	require.NoError(t, err)
	assert.True(t, Refresh(pending, t0.Add(time.Hour)))
	assert.Equal(t, models.SessionExpired, pending.Status)

	done := activeSession(t, zone, "1")
	ApplyTermination(done, Refund{Amount: decimal.Zero}, t0.Add(10*time.Minute))
	assert.False(t, Refresh(done, t0.Add(3*time.Hour)))
	assert.Equal(t, models.SessionCompleted, done.Status)
}

func TestNeedsWarning(t *testing.T) {
	s := activeSession(t, testZone("4"), "1")
	window := 10 * time.Minute

	assert.False(t, NeedsWarning(s, t0.Add(30*time.Minute), window))
	assert.True(t, NeedsWarning(s, t0.Add(50*time.Minute), window))
	assert.False(t, NeedsWarning(s, t0.Add(time.Hour), window))

	s.Status = models.SessionCompleted
	assert.False(t, NeedsWarning(s, t0.Add(55*time.Minute), window))
}

func TestHoursConversions(t *testing.T) {
	assert.Equal(t, 90*time.Minute, HoursToDuration(d("1.5")))
	assert.Equal(t, "0.25", HoursBetween(t0, t0.Add(15*time.Minute)).String())
	assert.True(t, HoursBetween(t0, t0.Add(-30*time.Minute)).Equal(d("-0.5")))
}
