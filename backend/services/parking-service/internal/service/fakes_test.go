package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/alerts"
	"parkpay/backend/services/parking-service/internal/events"
	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/payment"
	"parkpay/backend/services/parking-service/internal/pricing"
	redisstore "parkpay/backend/services/parking-service/internal/redis"
	"parkpay/backend/services/parking-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memZones struct {
	mu    sync.Mutex
	next  int64
	zones map[int64]models.Zone
}

func (m *memZones) Create(_ context.Context, z *models.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.zones {
		if existing.Code == z.Code {
			return repository.ErrDuplicate
		}
	}
	m.next++
	z.ID = m.next
	m.zones[z.ID] = *z
	return nil
}

func (m *memZones) Update(_ context.Context, z *models.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[z.ID]; !ok {
		return repository.ErrNotFound
	}
	m.zones[z.ID] = *z
	return nil
}

func (m *memZones) Get(_ context.Context, id int64) (*models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &z, nil
}

func (m *memZones) List(_ context.Context, activeOnly bool) ([]models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Zone
	for _, z := range m.zones {
		if activeOnly && !z.Active {
			continue
		}
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memVehicles struct {
	mu       sync.Mutex
	next     int64
	vehicles map[int64]models.Vehicle
}

func (m *memVehicles) Create(_ context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.vehicles {
		if existing.UserID == v.UserID && existing.LicensePlate == v.LicensePlate {
			return repository.ErrDuplicate
		}
	}
	m.next++
	v.ID = m.next
	m.vehicles[v.ID] = *v
	return nil
}

func (m *memVehicles) Get(_ context.Context, id int64) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (m *memVehicles) ListByUser(_ context.Context, userID int64) ([]models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vehicle
	for _, v := range m.vehicles {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

type memSessions struct {
	mu       sync.Mutex
	next     int64
	sessions map[int64]models.Session
}

func (m *memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	s.ID = m.next
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, id int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Update(_ context.Context, s *models.Session, expected ...models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[s.ID]
	if !ok {
		return repository.ErrStaleStatus
	}
	if stored.Version != s.Version {
		return repository.ErrStaleStatus
	}
	for _, status := range expected {
		if stored.Status == status {
			s.Version++
			m.sessions[s.ID] = *s
			return nil
		}
	}
	return repository.ErrStaleStatus
}

func (m *memSessions) ListByUser(_ context.Context, userID int64, _ int) ([]models.Session, error) {
	return m.filter(func(s models.Session) bool { return s.UserID == userID }), nil
}

func (m *memSessions) ListRunning(_ context.Context, now time.Time, _ int) ([]models.Session, error) {
	return m.filter(func(s models.Session) bool {
		return s.Status.Running() && s.ScheduledEndTime.After(now)
	}), nil
}

func (m *memSessions) ListEndingBetween(_ context.Context, from, to time.Time) ([]models.Session, error) {
	return m.filter(func(s models.Session) bool {
		return s.Status.Running() && s.ScheduledEndTime.After(from) && !s.ScheduledEndTime.After(to)
	}), nil
}

func (m *memSessions) ExpireOverdue(_ context.Context, now time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for id, s := range m.sessions {
		if s.Status.Terminal() || s.ScheduledEndTime.After(now) {
			continue
		}
		s.Status = models.SessionExpired
		s.Version++
		m.sessions[id] = s
		out = append(out, s)
	}
	return out, nil
}

func (m *memSessions) filter(keep func(models.Session) bool) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memSessions) status(id int64) models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Status
}

type memTransactions struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (m *memTransactions) Create(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = int64(len(m.txs) + 1)
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memTransactions) ListByUser(_ context.Context, userID int64, _ int) ([]models.Transaction, error) {
	return m.filter(func(tx models.Transaction) bool { return tx.UserID == userID }), nil
}

func (m *memTransactions) ListBySession(_ context.Context, sessionID int64) ([]models.Transaction, error) {
	return m.filter(func(tx models.Transaction) bool { return tx.SessionID == sessionID }), nil
}

func (m *memTransactions) ListAll(_ context.Context, _ int) ([]models.Transaction, error) {
	return m.filter(func(models.Transaction) bool { return true }), nil
}

func (m *memTransactions) filter(keep func(models.Transaction) bool) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (m *memTransactions) ofKind(kind models.TransactionKind) []models.Transaction {
	return m.filter(func(tx models.Transaction) bool { return tx.Kind == kind })
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts map[int64][]alerts.Alert
}

func (n *recordingNotifier) Notify(userID int64, a alerts.Alert) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts[userID] = append(n.alerts[userID], a)
	return 1
}

type harness struct {
	svc       *ParkingService
	clock     *fakeClock
	zones     *memZones
	vehicles  *memVehicles
	sessions  *memSessions
	txs       *memTransactions
	processor *payment.SimulatedProcessor
	published *recordingPublisher
	notifier  *recordingNotifier
	zone      *models.Zone
	vehicle   *models.Vehicle
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

const driverID int64 = 42

func newHarness(t interface{ Fatalf(string, ...any) }, maxHours string, chargeLimit decimal.Decimal) *harness {
	h := &harness{
		clock:     &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		zones:     &memZones{zones: map[int64]models.Zone{}},
		vehicles:  &memVehicles{vehicles: map[int64]models.Vehicle{}},
		sessions:  &memSessions{sessions: map[int64]models.Session{}},
		txs:       &memTransactions{},
		processor: payment.NewSimulatedProcessor(chargeLimit),
		published: &recordingPublisher{},
		notifier:  &recordingNotifier{alerts: map[int64][]alerts.Alert{}},
	}
	h.svc = NewParkingService(Deps{
		Zones:        h.zones,
		Vehicles:     h.vehicles,
		Sessions:     h.sessions,
		Transactions: h.txs,
		Processor:    h.processor,
		Publisher:    h.published,
		Notifier:     h.notifier,
		Rates:        pricing.DefaultRates,
		Clock:        h.clock.Now,
		Logger:       zap.NewNop(),
	})

	ctx := context.Background()
	zone, err := h.svc.CreateZone(ctx, ZoneInput{
		Code:             "dt-1",
		Name:             "Downtown",
		RatePerHour:      d("3.25"),
		MaxDurationHours: d(maxHours),
		LocationType:     models.LocationStreet,
		Active:           true,
	})
	if err != nil {
		t.Fatalf("create zone: %v", err)
	}
	vehicle, err := h.svc.RegisterVehicle(ctx, driverID, "abc 123", "ct", "")
	if err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	h.zone, h.vehicle = zone, vehicle
	return h
}

func (h *harness) driver() models.Principal {
	return models.Principal{UserID: driverID, Role: models.RoleDriver}
}

// rebuild returns a service over the harness state with the session store and cache swapped.
func (h *harness) rebuild(sessions SessionStore, cache ActiveCache) *ParkingService {
	return NewParkingService(Deps{
		Zones:        h.zones,
		Vehicles:     h.vehicles,
		Sessions:     sessions,
		Transactions: h.txs,
		Processor:    h.processor,
		Cache:        cache,
		Publisher:    h.published,
		Notifier:     h.notifier,
		Rates:        pricing.DefaultRates,
		Clock:        h.clock.Now,
		Logger:       zap.NewNop(),
	})
}

type memCache struct {
	mu     sync.Mutex
	active map[int64]redisstore.ActiveSession
	warned map[string]bool
	gets   int
	hits   int
}

func newMemCache() *memCache {
	return &memCache{active: map[int64]redisstore.ActiveSession{}, warned: map[string]bool{}}
}

func (c *memCache) Save(_ context.Context, s redisstore.ActiveSession, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[s.SessionID] = s
	return nil
}

func (c *memCache) Get(_ context.Context, id int64) (*redisstore.ActiveSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.active[id]
	if !ok {
		return nil, redisstore.ErrMiss
	}
	c.hits++
	return &s, nil
}

func (c *memCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
	return nil
}

func (c *memCache) MarkWarned(_ context.Context, id int64, end, _ time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fmt.Sprintf("%d:%d", id, end.Unix())
	if c.warned[key] {
		return false, nil
	}
	c.warned[key] = true
	return true, nil
}

// countingSessions counts reads that reach storage.
type countingSessions struct {
	*memSessions
	mu    sync.Mutex
	reads int
}

func (c *countingSessions) Get(ctx context.Context, id int64) (*models.Session, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.memSessions.Get(ctx, id)
}

// staleReadSessions serves a fixed earlier snapshot of one session, as a request that read
// just before a concurrent writer would see it.
type staleReadSessions struct {
	*memSessions
	snapshot models.Session
}

func (s *staleReadSessions) Get(ctx context.Context, id int64) (*models.Session, error) {
	if id == s.snapshot.ID {
		cp := s.snapshot
		return &cp, nil
	}
	return s.memSessions.Get(ctx, id)
}

// failingUpdateSessions accepts inserts but fails every update.
type failingUpdateSessions struct {
	*memSessions
	err error
}

func (f *failingUpdateSessions) Update(context.Context, *models.Session, ...models.SessionStatus) error {
	return f.err
}

// broadEndingSessions returns every stored session as "ending soon", leaving the window
// decision to the caller.
type broadEndingSessions struct {
	*memSessions
}

func (b *broadEndingSessions) ListEndingBetween(context.Context, time.Time, time.Time) ([]models.Session, error) {
	return b.filter(func(models.Session) bool { return true }), nil
}
