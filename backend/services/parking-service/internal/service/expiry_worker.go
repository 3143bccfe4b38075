package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/events"
	"parkpay/backend/services/parking-service/internal/lifecycle"
	"parkpay/backend/services/parking-service/internal/models"
)

// ExpiryWorker expires overdue sessions and warns drivers shortly before their time runs out.
type ExpiryWorker struct {
	svc      *ParkingService
	interval time.Duration
	window   time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	warned map[string]time.Time
}

// NewExpiryWorker builds worker. Without a cache, warnings are deduped in memory.
func NewExpiryWorker(svc *ParkingService, interval, warningWindow time.Duration, logger *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryWorker{
		svc:      svc,
		interval: interval,
		window:   warningWindow,
		logger:   logger,
		warned:   make(map[string]time.Time),
	}
}

// Start runs ticks until ctx is done.
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("expiry tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one expiry and warning pass.
func (w *ExpiryWorker) Tick(ctx context.Context) error {
	now := w.svc.now()

	expired, err := w.svc.sessions.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire overdue: %w", err)
	}
	for i := range expired {
		session := &expired[i]
		w.svc.cacheDelete(ctx, session.ID)
		w.svc.emit(ctx, events.SessionExpired, session, decimal.Zero, now)
	}
	if len(expired) > 0 {
		w.logger.Info("sessions expired", zap.Int("count", len(expired)))
	}

	if w.window <= 0 {
		return nil
	}
	// storage narrows the candidates, lifecycle decides
	ending, err := w.svc.sessions.ListEndingBetween(ctx, now, now.Add(w.window))
	if err != nil {
		return fmt.Errorf("list ending sessions: %w", err)
	}
	for i := range ending {
		session := &ending[i]
		if !lifecycle.NeedsWarning(session, now, w.window) {
			continue
		}
		first, err := w.markWarned(ctx, session, now)
		if err != nil {
			w.logger.Warn("failed to dedupe expiry warning", zap.Int64("session_id", session.ID), zap.Error(err))
			continue
		}
		if first {
			w.svc.emit(ctx, events.SessionExpiring, session, decimal.Zero, now)
		}
	}
	return nil
}

// markWarned reports whether this is the first warning for the session's current end time.
// An extension moves the end time, so the driver is warned again before the new end.
func (w *ExpiryWorker) markWarned(ctx context.Context, session *models.Session, now time.Time) (bool, error) {
	if w.svc.cache != nil {
		return w.svc.cache.MarkWarned(ctx, session.ID, session.ScheduledEndTime, now)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for key, end := range w.warned {
		if !end.After(now) {
			delete(w.warned, key)
		}
	}
	key := fmt.Sprintf("%d:%d", session.ID, session.ScheduledEndTime.Unix())
	if _, ok := w.warned[key]; ok {
		return false, nil
	}
	w.warned[key] = session.ScheduledEndTime
	return true, nil
}
