package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"parkpay/backend/services/parking-service/internal/models"
)

// AccountService is what the vehicle and payment history endpoints need.
type AccountService interface {
	RegisterVehicle(ctx context.Context, userID int64, plate, state, nickname string) (*models.Vehicle, error)
	Vehicles(ctx context.Context, userID int64) ([]models.Vehicle, error)
	TransactionsForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	AllTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
}

// AccountHandlers serves vehicles and transaction history.
type AccountHandlers struct {
	svc    AccountService
	logger *zap.Logger
}

// NewAccountHandlers returns handler.
func NewAccountHandlers(svc AccountService, logger *zap.Logger) *AccountHandlers {
	return &AccountHandlers{svc: svc, logger: logger}
}

type vehicleRequest struct {
	LicensePlate string `json:"license_plate"`
	State        string `json:"state"`
	Nickname     string `json:"nickname"`
}

// RegisterVehicle handles POST /vehicles.
func (h *AccountHandlers) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.svc.RegisterVehicle(r.Context(), p.UserID, req.LicensePlate, req.State, req.Nickname)
	if err != nil {
		writeServiceError(w, h.logger, "register vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Vehicles handles GET /vehicles/me.
func (h *AccountHandlers) Vehicles(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	vehicles, err := h.svc.Vehicles(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, h.logger, "list vehicles", err)
		return
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// TransactionsMe handles GET /transactions/me.
func (h *AccountHandlers) TransactionsMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	txs, err := h.svc.TransactionsForUser(r.Context(), p.UserID, queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(txs))
}

// AllTransactions handles GET /admin/transactions.
func (h *AccountHandlers) AllTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.AllTransactions(r.Context(), queryLimit(r))
	if err != nil {
		writeServiceError(w, h.logger, "list all transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(txs))
}
