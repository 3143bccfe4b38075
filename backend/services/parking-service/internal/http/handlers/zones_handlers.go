package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/models"
	"parkpay/backend/services/parking-service/internal/service"
)

// ZoneService is what the zone endpoints need.
type ZoneService interface {
	ListZones(ctx context.Context, includeInactive bool) ([]models.Zone, error)
	CreateZone(ctx context.Context, in service.ZoneInput) (*models.Zone, error)
	UpdateZone(ctx context.Context, id int64, in service.ZoneInput) (*models.Zone, error)
}

// ZonesHandlers serves zone listing and administration.
type ZonesHandlers struct {
	svc    ZoneService
	logger *zap.Logger
}

// NewZonesHandlers returns handler.
func NewZonesHandlers(svc ZoneService, logger *zap.Logger) *ZonesHandlers {
	return &ZonesHandlers{svc: svc, logger: logger}
}

type zoneRequest struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	RatePerHour      decimal.Decimal `json:"rate_per_hour"`
	MaxDurationHours decimal.Decimal `json:"max_duration_hours"`
	LocationType     string          `json:"location_type"`
	Active           *bool           `json:"active"`
}

func (req zoneRequest) input() service.ZoneInput {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return service.ZoneInput{
		Code:             req.Code,
		Name:             req.Name,
		RatePerHour:      req.RatePerHour,
		MaxDurationHours: req.MaxDurationHours,
		LocationType:     models.LocationType(req.LocationType),
		Active:           active,
	}
}

// List handles GET /zones.
func (h *ZonesHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListAll handles GET /admin/zones, inactive zones included.
func (h *ZonesHandlers) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ZonesHandlers) list(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	zones, err := h.svc.ListZones(r.Context(), includeInactive)
	if err != nil {
		writeServiceError(w, h.logger, "list zones", err)
		return
	}
	out := make([]zoneResponse, 0, len(zones))
	for i := range zones {
		out = append(out, toZone(&zones[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /admin/zones.
func (h *ZonesHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zone, err := h.svc.CreateZone(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, h.logger, "create zone", err)
		return
	}
	writeJSON(w, http.StatusCreated, toZone(zone))
}

// Update handles PUT /admin/zones/{id}.
func (h *ZonesHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zone, err := h.svc.UpdateZone(r.Context(), id, req.input())
	if err != nil {
		writeServiceError(w, h.logger, "update zone", err)
		return
	}
	writeJSON(w, http.StatusOK, toZone(zone))
}
