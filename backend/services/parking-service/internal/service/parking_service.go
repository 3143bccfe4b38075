package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/alerts"
	"parkpay/backend/services/parking-service/internal/events"
	"parkpay/backend/services/parking-service/internal/lifecycle"
	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/payment"
	"parkpay/backend/services/parking-service/internal/pricing"
	redisstore "parkpay/backend/services/parking-service/internal/redis"
	"parkpay/backend/services/parking-service/internal/repository"
)

var (
	// ErrNotFound is returned for unknown zones, vehicles and sessions.
	ErrNotFound = errors.New("parking: not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("parking: forbidden")
	// ErrConflict is returned for duplicate zone codes or license plates.
	ErrConflict = errors.New("parking: already exists")
	// ErrPaymentDeclined is returned when the card processor refuses a charge.
	ErrPaymentDeclined = errors.New("parking: payment declined")
)

const (
	transactionSucceeded = "succeeded"
	transactionFailed    = "failed"
	transactionReversed  = "reversed"
	currency             = "usd"
)

// ZoneStore persists zones.
type ZoneStore interface {
	Create(ctx context.Context, z *models.Zone) error
	Update(ctx context.Context, z *models.Zone) error
	Get(ctx context.Context, id int64) (*models.Zone, error)
	List(ctx context.Context, activeOnly bool) ([]models.Zone, error)
}

// VehicleStore persists vehicles.
type VehicleStore interface {
	Create(ctx context.Context, v *models.Vehicle) error
	Get(ctx context.Context, id int64) (*models.Vehicle, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Vehicle, error)
}

// SessionStore persists parking sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id int64) (*models.Session, error)
	Update(ctx context.Context, s *models.Session, expected ...models.SessionStatus) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ListRunning(ctx context.Context, now time.Time, limit int) ([]models.Session, error)
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]models.Session, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]models.Session, error)
}

// TransactionStore persists charges and refunds.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Transaction, error)
	ListAll(ctx context.Context, limit int) ([]models.Transaction, error)
}

// ActiveCache mirrors running sessions and dedupes expiry warnings.
type ActiveCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession, now time.Time) error
	Get(ctx context.Context, sessionID int64) (*redisstore.ActiveSession, error)
	Delete(ctx context.Context, sessionID int64) error
	MarkWarned(ctx context.Context, sessionID int64, end, now time.Time) (bool, error)
}

// Notifier pushes alerts to connected drivers.
type Notifier interface {
	Notify(userID int64, alert alerts.Alert) int
}

// Deps groups ParkingService collaborators. Cache, Publisher and Notifier are optional.
type Deps struct {
	Zones        ZoneStore
	Vehicles     VehicleStore
	Sessions     SessionStore
	Transactions TransactionStore
	Processor    payment.Processor
	Cache        ActiveCache
	Publisher    events.Publisher
	Notifier     Notifier
	Rates        pricing.Rates
	Clock        func() time.Time
	Logger       *zap.Logger
}

// ParkingService runs the parking session lifecycle against storage and payments.
type ParkingService struct {
	zones     ZoneStore
	vehicles  VehicleStore
	sessions  SessionStore
	txs       TransactionStore
	processor payment.Processor
	cache     ActiveCache
	publisher events.Publisher
	notifier  Notifier
	rates     pricing.Rates
	now       func() time.Time
	logger    *zap.Logger
}

// NewParkingService builds service.
func NewParkingService(deps Deps) *ParkingService {
	svc := &ParkingService{
		zones:     deps.Zones,
		vehicles:  deps.Vehicles,
		sessions:  deps.Sessions,
		txs:       deps.Transactions,
		processor: deps.Processor,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		rates:     deps.Rates,
		now:       deps.Clock,
		logger:    deps.Logger,
	}
	if svc.publisher == nil {
		svc.publisher = events.NopPublisher{}
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Rates returns the tax and fee parameters in use.
func (s *ParkingService) Rates() pricing.Rates {
	return s.rates
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

// ZoneInput carries the editable zone fields.
type ZoneInput struct {
	Code             string
	Name             string
	RatePerHour      decimal.Decimal
	MaxDurationHours decimal.Decimal
	LocationType     models.LocationType
	Active           bool
}

func (in ZoneInput) validate() error {
	switch {
	case strings.TrimSpace(in.Code) == "":
		return fmt.Errorf("%w: zone code required", lifecycle.ErrInvalidInput)
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: zone name required", lifecycle.ErrInvalidInput)
	case !in.RatePerHour.IsPositive():
		return fmt.Errorf("%w: rate per hour must be positive", lifecycle.ErrInvalidInput)
	case !in.RatePerHour.Equal(in.RatePerHour.Round(2)):
		return fmt.Errorf("%w: rate per hour must be whole cents", lifecycle.ErrInvalidInput)
	case in.MaxDurationHours.LessThan(lifecycle.Increment) || !in.MaxDurationHours.Mod(lifecycle.Increment).IsZero():
		return fmt.Errorf("%w: max duration must be a positive multiple of %s hours", lifecycle.ErrInvalidInput, lifecycle.Increment)
	case !in.LocationType.Valid():
		return fmt.Errorf("%w: unknown location type %q", lifecycle.ErrInvalidInput, in.LocationType)
	}
	return nil
}

// ListZones returns zones; inactive ones only when includeInactive is set.
func (s *ParkingService) ListZones(ctx context.Context, includeInactive bool) ([]models.Zone, error) {
	return s.zones.List(ctx, !includeInactive)
}

// CreateZone adds a priced zone.
func (s *ParkingService) CreateZone(ctx context.Context, in ZoneInput) (*models.Zone, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	zone := &models.Zone{
		Code:             strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:             strings.TrimSpace(in.Name),
		RatePerHour:      in.RatePerHour,
		MaxDurationHours: in.MaxDurationHours,
		LocationType:     in.LocationType,
		Active:           in.Active,
	}
	if err := s.zones.Create(ctx, zone); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: zone %s", ErrConflict, zone.Code)
		}
		return nil, err
	}
	s.logger.Info("zone created", zap.Int64("zone_id", zone.ID), zap.String("code", zone.Code))
	return zone, nil
}

// UpdateZone changes a zone's rate, cap, type or activity. Running sessions keep the rate
// they were bought at.
func (s *ParkingService) UpdateZone(ctx context.Context, id int64, in ZoneInput) (*models.Zone, error) {
	zone, err := s.zones.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "zone", id)
	}
	in.Code = zone.Code
	if err := in.validate(); err != nil {
		return nil, err
	}
	zone.Name = strings.TrimSpace(in.Name)
	zone.RatePerHour = in.RatePerHour
	zone.MaxDurationHours = in.MaxDurationHours
	zone.LocationType = in.LocationType
	zone.Active = in.Active
	if err := s.zones.Update(ctx, zone); err != nil {
		return nil, notFound(err, "zone", id)
	}
	s.logger.Info("zone updated", zap.Int64("zone_id", zone.ID), zap.String("rate_per_hour", zone.RatePerHour.String()))
	return zone, nil
}

// RegisterVehicle adds a vehicle for userID.
func (s *ParkingService) RegisterVehicle(ctx context.Context, userID int64, plate, state, nickname string) (*models.Vehicle, error) {
	plate = models.NormalizePlate(plate)
	if plate == "" || len(plate) > 10 {
		return nil, fmt.Errorf("%w: license plate must be 1-10 characters", lifecycle.ErrInvalidInput)
	}
	v := &models.Vehicle{
		UserID:       userID,
		LicensePlate: plate,
		State:        strings.ToUpper(strings.TrimSpace(state)),
		Nickname:     strings.TrimSpace(nickname),
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: vehicle %s", ErrConflict, plate)
		}
		return nil, err
	}
	return v, nil
}

// Vehicles lists the user's vehicles.
func (s *ParkingService) Vehicles(ctx context.Context, userID int64) ([]models.Vehicle, error) {
	return s.vehicles.ListByUser(ctx, userID)
}

// Quote prices a purchase without creating anything.
func (s *ParkingService) Quote(ctx context.Context, zoneID int64, hours decimal.Decimal) (pricing.Breakdown, error) {
	zone, err := s.zones.Get(ctx, zoneID)
	if err != nil {
		return pricing.Breakdown{}, notFound(err, "zone", zoneID)
	}
	if err := lifecycle.ValidateDuration(*zone, hours); err != nil {
		return pricing.Breakdown{}, err
	}
	return s.rates.Calculate(zone.RatePerHour, hours)
}

// CheckoutInput is a request to park a vehicle in a zone.
type CheckoutInput struct {
	ZoneID        int64
	VehicleID     int64
	DurationHours decimal.Decimal
}

// Checkout opens a PENDING session, charges it and activates it once the charge succeeds.
// A declined charge leaves the session PENDING until it lapses.
func (s *ParkingService) Checkout(ctx context.Context, p models.Principal, in CheckoutInput) (*models.Session, error) {
	zone, err := s.zones.Get(ctx, in.ZoneID)
	if err != nil {
		return nil, notFound(err, "zone", in.ZoneID)
	}
	vehicle, err := s.vehicles.Get(ctx, in.VehicleID)
	if err != nil {
		return nil, notFound(err, "vehicle", in.VehicleID)
	}
	if vehicle.UserID != p.UserID {
		return nil, fmt.Errorf("%w: vehicle %d", ErrForbidden, vehicle.ID)
	}

	session, err := lifecycle.Open(*zone, p.UserID, vehicle.ID, in.DurationHours, s.now(), s.rates)
	if err != nil {
		return nil, err
	}
	session.Reference = uuid.NewString()
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	chargeID, err := s.charge(ctx, session, session.TotalCost, session.Reference, "parking "+zone.Code+" "+session.DurationHours.String()+"h")
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := lifecycle.Activate(session, now); err != nil {
		s.reverseCharge(ctx, session, models.TransactionCharge, chargeID, session.TotalCost)
		return nil, err
	}
	session.PaymentRef = chargeID
	if err := s.sessions.Update(ctx, session, models.SessionPending); err != nil {
		s.reverseCharge(ctx, session, models.TransactionCharge, chargeID, session.TotalCost)
		return nil, s.stale(err, session)
	}
	s.record(ctx, session, models.TransactionCharge, session.TotalCost, chargeID, transactionSucceeded)

	s.cacheSave(ctx, session, now)
	s.emit(ctx, events.SessionActivated, session, session.TotalCost, now)
	s.logger.Info("parking session activated",
		zap.Int64("session_id", session.ID),
		zap.Int64("zone_id", zone.ID),
		zap.String("duration_hours", session.DurationHours.String()),
		zap.String("total_cost", session.TotalCost.StringFixed(2)),
	)
	return session, nil
}

// Session returns one session visible to p, with expiry applied.
func (s *ParkingService) Session(ctx context.Context, p models.Principal, id int64) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	if session.UserID != p.UserID && !p.IsAdmin() {
		return nil, fmt.Errorf("%w: session %d", ErrForbidden, id)
	}
	s.refresh(ctx, session, s.now())
	return session, nil
}

// SessionStatus returns the running view of a session for countdown polling. Running sessions
// are answered from the cache; a miss, or a cached entry past its end, falls back to storage
// and refills the cache.
func (s *ParkingService) SessionStatus(ctx context.Context, p models.Principal, id int64) (*redisstore.ActiveSession, error) {
	now := s.now()
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		switch {
		case err == nil:
			if cached.UserID != p.UserID && !p.IsAdmin() {
				return nil, fmt.Errorf("%w: session %d", ErrForbidden, id)
			}
			if now.Before(cached.ScheduledEndTime) {
				return cached, nil
			}
		case !errors.Is(err, redisstore.ErrMiss):
			s.logger.Warn("active session cache read failed", zap.Int64("session_id", id), zap.Error(err))
		}
	}

	session, err := s.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if session.Status.Running() {
		s.cacheSave(ctx, session, now)
	}
	view := redisstore.FromSession(session)
	return &view, nil
}

// SessionsForUser returns the user's latest sessions, with expiry applied.
func (s *ParkingService) SessionsForUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range sessions {
		s.refresh(ctx, &sessions[i], now)
	}
	return sessions, nil
}

// ActiveSessions returns sessions currently running across all users.
func (s *ParkingService) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return s.sessions.ListRunning(ctx, s.now(), limit)
}

// ExtensionOption is one purchasable extension with its price.
type ExtensionOption struct {
	Hours decimal.Decimal   `json:"hours"`
	Cost  pricing.Breakdown `json:"cost"`
}

// ExtensionOffer lists what the session may still buy.
type ExtensionOffer struct {
	MaxAdditionalHours decimal.Decimal   `json:"max_additional_hours"`
	Options            []ExtensionOption `json:"options"`
}

// ExtensionOptions returns the priced extension steps that fit in the zone cap.
func (s *ParkingService) ExtensionOptions(ctx context.Context, p models.Principal, id int64) (*ExtensionOffer, error) {
	session, zone, err := s.sessionWithZone(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.Running() {
		return nil, fmt.Errorf("%w: cannot extend %s session", lifecycle.ErrInvalidState, session.Status)
	}
	steps, err := lifecycle.ExtensionOptions(session, *zone)
	if err != nil {
		return nil, err
	}
	offer := &ExtensionOffer{MaxAdditionalHours: lifecycle.MaxAdditionalHours(session, *zone)}
	for _, hours := range steps {
		cost, err := s.rates.Calculate(session.RatePerHour, hours)
		if err != nil {
			return nil, err
		}
		offer.Options = append(offer.Options, ExtensionOption{Hours: hours, Cost: cost})
	}
	return offer, nil
}

// Extend buys additional hours for a running session.
func (s *ParkingService) Extend(ctx context.Context, p models.Principal, id int64, additional decimal.Decimal) (*models.Session, *lifecycle.Extension, error) {
	session, zone, err := s.sessionWithZone(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	prior := session.Status
	ext, err := lifecycle.PlanExtension(session, *zone, additional, s.now(), s.rates)
	if err != nil {
		return nil, nil, err
	}

	// One key per request: racing extensions must never share a charge.
	key := session.Reference + "-ext-" + uuid.NewString()
	chargeID, err := s.charge(ctx, session, ext.Cost.TotalCost, key, "parking extension "+additional.String()+"h")
	if err != nil {
		return nil, nil, err
	}

	lifecycle.ApplyExtension(session, ext)
	if err := s.sessions.Update(ctx, session, prior); err != nil {
		s.reverseCharge(ctx, session, models.TransactionExtension, chargeID, ext.Cost.TotalCost)
		return nil, nil, s.stale(err, session)
	}
	s.record(ctx, session, models.TransactionExtension, ext.Cost.TotalCost, chargeID, transactionSucceeded)

	now := s.now()
	s.cacheSave(ctx, session, now)
	s.emit(ctx, events.SessionExtended, session, ext.Cost.TotalCost, now)
	s.logger.Info("parking session extended",
		zap.Int64("session_id", session.ID),
		zap.String("additional_hours", additional.String()),
		zap.Time("scheduled_end_time", session.ScheduledEndTime),
	)
	return session, &ext, nil
}

// RefundPreview computes what terminating now would refund, without changing anything.
func (s *ParkingService) RefundPreview(ctx context.Context, p models.Principal, id int64) (*lifecycle.Refund, error) {
	session, err := s.Session(ctx, p, id)
	if err != nil {
		return nil, err
	}
	preview := *session
	refund, err := lifecycle.PlanTermination(&preview, s.now(), s.rates)
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// Terminate ends a running session early and refunds unused time. The processing fee is
// kept. A second terminate fails with lifecycle.ErrInvalidState.
func (s *ParkingService) Terminate(ctx context.Context, p models.Principal, id int64) (*models.Session, *lifecycle.Refund, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "session", id)
	}
	if session.UserID != p.UserID && !p.IsAdmin() {
		return nil, nil, fmt.Errorf("%w: session %d", ErrForbidden, id)
	}

	now := s.now()
	prior := session.Status
	refund, err := lifecycle.PlanTermination(session, now, s.rates)
	if err != nil {
		s.persistExpiry(ctx, session, prior)
		return nil, nil, err
	}
	lifecycle.ApplyTermination(session, refund, now)
	if err := s.sessions.Update(ctx, session, prior); err != nil {
		return nil, nil, s.stale(err, session)
	}

	if refund.Amount.IsPositive() {
		s.refund(ctx, session, refund.Amount)
	}
	s.cacheDelete(ctx, session.ID)
	s.emit(ctx, events.SessionCompleted, session, refund.Amount, now)
	s.logger.Info("parking session terminated",
		zap.Int64("session_id", session.ID),
		zap.String("chargeable_hours", refund.ChargeableHours.String()),
		zap.String("refund", refund.Amount.StringFixed(2)),
	)
	return session, &refund, nil
}

// TransactionsForUser returns the user's payment history.
func (s *ParkingService) TransactionsForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return s.txs.ListByUser(ctx, userID, limit)
}

// AllTransactions returns the latest payments across users.
func (s *ParkingService) AllTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	return s.txs.ListAll(ctx, limit)
}

func (s *ParkingService) sessionWithZone(ctx context.Context, p models.Principal, id int64) (*models.Session, *models.Zone, error) {
	session, err := s.Session(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	zone, err := s.zones.Get(ctx, session.ZoneID)
	if err != nil {
		return nil, nil, notFound(err, "zone", session.ZoneID)
	}
	return session, zone, nil
}

func (s *ParkingService) charge(ctx context.Context, session *models.Session, amount decimal.Decimal, key, description string) (string, error) {
	id, err := s.processor.Charge(ctx, payment.ChargeRequest{
		Amount:         amount,
		Currency:       currency,
		Reference:      session.Reference,
		Description:    description,
		IdempotencyKey: key,
	})
	if err != nil {
		s.logger.Warn("charge failed", zap.Int64("session_id", session.ID), zap.String("amount", amount.StringFixed(2)), zap.Error(err))
		if errors.Is(err, payment.ErrDeclined) {
			return "", fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
		}
		return "", err
	}
	return id, nil
}

// refund returns amount across the session's charges, newest charge first, so extensions are
// unwound before the initial purchase.
func (s *ParkingService) refund(ctx context.Context, session *models.Session, amount decimal.Decimal) {
	txs, err := s.txs.ListBySession(ctx, session.ID)
	if err != nil {
		s.logger.Error("failed to load charges for refund", zap.Int64("session_id", session.ID), zap.Error(err))
		s.record(ctx, session, models.TransactionRefund, amount, "", transactionFailed)
		return
	}

	remaining := amount
	for i := len(txs) - 1; i >= 0 && remaining.IsPositive(); i-- {
		tx := txs[i]
		if tx.Kind == models.TransactionRefund || tx.Status != transactionSucceeded {
			continue
		}
		part := decimal.Min(remaining, tx.Amount)
		refundID, err := s.processor.Refund(ctx, tx.ProcessorRef, part)
		if err != nil {
			s.logger.Error("refund failed", zap.Int64("session_id", session.ID), zap.String("charge_id", tx.ProcessorRef), zap.Error(err))
			s.record(ctx, session, models.TransactionRefund, part, tx.ProcessorRef, transactionFailed)
		} else {
			s.record(ctx, session, models.TransactionRefund, part, refundID, transactionSucceeded)
		}
		remaining = remaining.Sub(part)
	}
	if remaining.IsPositive() {
		s.logger.Error("refund exceeds recorded charges", zap.Int64("session_id", session.ID), zap.String("unrefunded", remaining.StringFixed(2)))
		s.record(ctx, session, models.TransactionRefund, remaining, "", transactionFailed)
	}
}

// reverseCharge refunds a charge whose session update did not land. The charge is recorded as
// reversed so refund allocation never draws on it again.
func (s *ParkingService) reverseCharge(ctx context.Context, session *models.Session, kind models.TransactionKind, chargeID string, amount decimal.Decimal) {
	ctx = context.WithoutCancel(ctx)
	s.record(ctx, session, kind, amount, chargeID, transactionReversed)
	refundID, err := s.processor.Refund(ctx, chargeID, amount)
	if err != nil {
		s.logger.Error("failed to reverse charge",
			zap.Int64("session_id", session.ID),
			zap.String("charge_id", chargeID),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err),
		)
		s.record(ctx, session, models.TransactionRefund, amount, chargeID, transactionFailed)
		return
	}
	s.logger.Warn("charge reversed", zap.Int64("session_id", session.ID), zap.String("charge_id", chargeID))
	s.record(ctx, session, models.TransactionRefund, amount, refundID, transactionSucceeded)
}

func (s *ParkingService) record(ctx context.Context, session *models.Session, kind models.TransactionKind, amount decimal.Decimal, ref, status string) {
	tx := &models.Transaction{
		SessionID:    session.ID,
		UserID:       session.UserID,
		Kind:         kind,
		Amount:       amount,
		ProcessorRef: ref,
		Status:       status,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		s.logger.Error("failed to record transaction",
			zap.Int64("session_id", session.ID),
			zap.String("kind", string(kind)),
			zap.String("processor_ref", ref),
			zap.Error(err),
		)
	}
}

// refresh applies lazy expiry and persists it when the status changed.
func (s *ParkingService) refresh(ctx context.Context, session *models.Session, now time.Time) {
	prior := session.Status
	if lifecycle.Refresh(session, now) {
		s.persistExpiry(ctx, session, prior)
	}
}

func (s *ParkingService) persistExpiry(ctx context.Context, session *models.Session, prior models.SessionStatus) {
	if session.Status != models.SessionExpired || prior == models.SessionExpired {
		return
	}
	if err := s.sessions.Update(ctx, session, prior); err != nil {
		if !errors.Is(err, repository.ErrStaleStatus) {
			s.logger.Warn("failed to persist expiry", zap.Int64("session_id", session.ID), zap.Error(err))
		}
		return
	}
	s.cacheDelete(ctx, session.ID)
	s.emit(ctx, events.SessionExpired, session, decimal.Zero, s.now())
}

func (s *ParkingService) stale(err error, session *models.Session) error {
	if errors.Is(err, repository.ErrStaleStatus) {
		return fmt.Errorf("%w: session %d changed concurrently", lifecycle.ErrInvalidState, session.ID)
	}
	return err
}

func (s *ParkingService) cacheSave(ctx context.Context, session *models.Session, now time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, redisstore.FromSession(session), now); err != nil {
		s.logger.Warn("failed to cache active session", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}

func (s *ParkingService) cacheDelete(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete active session cache", zap.Int64("session_id", id), zap.Error(err))
	}
}

func (s *ParkingService) emit(ctx context.Context, t events.Type, session *models.Session, amount decimal.Decimal, now time.Time) {
	if err := s.publisher.Publish(ctx, events.FromSession(t, session, amount, now)); err != nil {
		s.logger.Warn("failed to publish session event", zap.String("type", string(t)), zap.Int64("session_id", session.ID), zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.Notify(session.UserID, alertFor(t, session, now))
	}
}

func alertFor(t events.Type, session *models.Session, now time.Time) alerts.Alert {
	remaining := session.Remaining(now)
	var msg string
	switch t {
	case events.SessionActivated:
		msg = fmt.Sprintf("Parking started, ends at %s", session.ScheduledEndTime.Format(time.Kitchen))
	case events.SessionExtended:
		msg = fmt.Sprintf("Parking extended until %s", session.ScheduledEndTime.Format(time.Kitchen))
	case events.SessionExpiring:
		msg = fmt.Sprintf("Parking expires in %d minutes", int(remaining.Round(time.Minute).Minutes()))
	case events.SessionExpired:
		msg = "Parking session expired"
	case events.SessionCompleted:
		msg = "Parking session ended"
	}
	return alerts.Alert{
		Type:             string(t),
		SessionID:        session.ID,
		Message:          msg,
		ScheduledEndTime: session.ScheduledEndTime,
		RemainingSeconds: int64(remaining / time.Second),
		SentAt:           now.UTC(),
	}
}
