package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/lifecycle"
	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/pricing"
	redisstore "parkpay/backend/services/parking-service/internal/redis"
	"parkpay/backend/services/parking-service/internal/service"
)

// SessionService is what the session endpoints need.
type SessionService interface {
	Quote(ctx context.Context, zoneID int64, hours decimal.Decimal) (pricing.Breakdown, error)
	Checkout(ctx context.Context, p models.Principal, in service.CheckoutInput) (*models.Session, error)
	Session(ctx context.Context, p models.Principal, id int64) (*models.Session, error)
	SessionStatus(ctx context.Context, p models.Principal, id int64) (*redisstore.ActiveSession, error)
	SessionsForUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ActiveSessions(ctx context.Context, limit int) ([]models.Session, error)
	ExtensionOptions(ctx context.Context, p models.Principal, id int64) (*service.ExtensionOffer, error)
	Extend(ctx context.Context, p models.Principal, id int64, additional decimal.Decimal) (*models.Session, *lifecycle.Extension, error)
	RefundPreview(ctx context.Context, p models.Principal, id int64) (*lifecycle.Refund, error)
	Terminate(ctx context.Context, p models.Principal, id int64) (*models.Session, *lifecycle.Refund, error)
}

// SessionsHandlers serves parking session endpoints.
type SessionsHandlers struct {
	svc    SessionService
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionsHandlers returns handler.
func NewSessionsHandlers(svc SessionService, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{svc: svc, now: time.Now, logger: logger}
}

type quoteRequest struct {
	ZoneID        int64           `json:"zone_id"`
	DurationHours decimal.Decimal `json:"duration_hours"`
}

// Quote handles POST /sessions/quote.
func (h *SessionsHandlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.svc.Quote(r.Context(), req.ZoneID, req.DurationHours)
	if err != nil {
		writeServiceError(w, h.logger, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdown(b))
}

type checkoutRequest struct {
	ZoneID        int64           `json:"zone_id"`
	VehicleID     int64           `json:"vehicle_id"`
	DurationHours decimal.Decimal `json:"duration_hours"`
}

// Checkout handles POST /sessions.
func (h *SessionsHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.svc.Checkout(r.Context(), p, service.CheckoutInput{
		ZoneID:        req.ZoneID,
		VehicleID:     req.VehicleID,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		writeServiceError(w, h.logger, "checkout", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSession(s, h.now()))
}

// Me handles GET /sessions/me.
func (h *SessionsHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	sessions, err := h.svc.SessionsForUser(r.Context(), p.UserID, queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessions(sessions, h.now()))
}

// Get handles GET /sessions/{id}.
func (h *SessionsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Session(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, h.logger, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSession(s, h.now()))
}

// Status handles GET /sessions/{id}/status.
func (h *SessionsHandlers) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.SessionStatus(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, h.logger, "session status", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatus(view, h.now()))
}

// ExtensionOptions handles GET /sessions/{id}/extension-options.
func (h *SessionsHandlers) ExtensionOptions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	offer, err := h.svc.ExtensionOptions(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, h.logger, "extension options", err)
		return
	}
	writeJSON(w, http.StatusOK, toOffer(offer))
}

type extendRequest struct {
	AdditionalHours decimal.Decimal `json:"additional_hours"`
}

type extendResponse struct {
	Session       sessionResponse   `json:"session"`
	ExtensionCost breakdownResponse `json:"extension_cost"`
}

// Extend handles POST /sessions/{id}/extend.
func (h *SessionsHandlers) Extend(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req extendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ext, err := h.svc.Extend(r.Context(), p, id, req.AdditionalHours)
	if err != nil {
		writeServiceError(w, h.logger, "extend session", err)
		return
	}
	writeJSON(w, http.StatusOK, extendResponse{
		Session:       toSession(s, h.now()),
		ExtensionCost: toBreakdown(ext.Cost),
	})
}

// RefundPreview handles GET /sessions/{id}/refund-preview.
func (h *SessionsHandlers) RefundPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	refund, err := h.svc.RefundPreview(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, h.logger, "refund preview", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefund(refund))
}

type terminateResponse struct {
	Session sessionResponse `json:"session"`
	Refund  refundResponse  `json:"refund"`
}

// Terminate handles POST /sessions/{id}/terminate.
func (h *SessionsHandlers) Terminate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, refund, err := h.svc.Terminate(r.Context(), p, id)
	if err != nil {
		writeServiceError(w, h.logger, "terminate session", err)
		return
	}
	writeJSON(w, http.StatusOK, terminateResponse{
		Session: toSession(s, h.now()),
		Refund:  toRefund(refund),
	})
}

// Active handles GET /admin/sessions/active.
func (h *SessionsHandlers) Active(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ActiveSessions(r.Context(), queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, "list active sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessions(sessions, h.now()))
}
