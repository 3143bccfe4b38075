package httpserver

import (
	"net/http"

	"parkpay/backend/services/parking-service/internal/http/handlers"
	"parkpay/backend/services/parking-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Zones         *handlers.ZonesHandlers
	Sessions      *handlers.SessionsHandlers
	Account       *handlers.AccountHandlers
	AlertsHandler http.HandlerFunc
	HealthHandler http.HandlerFunc
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware, middleware.RequireAdmin)
	}

	mux.Handle("GET /health", deps.HealthHandler)
	mux.Handle("GET /zones", http.HandlerFunc(deps.Zones.List))

	mux.Handle("POST /vehicles", authenticated(deps.Account.RegisterVehicle))
	mux.Handle("GET /vehicles/me", authenticated(deps.Account.Vehicles))

	mux.Handle("POST /sessions/quote", authenticated(deps.Sessions.Quote))
	mux.Handle("POST /sessions", authenticated(deps.Sessions.Checkout))
	mux.Handle("GET /sessions/me", authenticated(deps.Sessions.Me))
	mux.Handle("GET /sessions/{id}", authenticated(deps.Sessions.Get))
	mux.Handle("GET /sessions/{id}/status", authenticated(deps.Sessions.Status))
	mux.Handle("GET /sessions/{id}/extension-options", authenticated(deps.Sessions.ExtensionOptions))
	mux.Handle("POST /sessions/{id}/extend", authenticated(deps.Sessions.Extend))
	mux.Handle("GET /sessions/{id}/refund-preview", authenticated(deps.Sessions.RefundPreview))
	mux.Handle("POST /sessions/{id}/terminate", authenticated(deps.Sessions.Terminate))

	mux.Handle("GET /transactions/me", authenticated(deps.Account.TransactionsMe))

	mux.Handle("GET /admin/zones", admin(deps.Zones.ListAll))
	mux.Handle("POST /admin/zones", admin(deps.Zones.Create))
	mux.Handle("PUT /admin/zones/{id}", admin(deps.Zones.Update))
	mux.Handle("GET /admin/sessions/active", admin(deps.Sessions.Active))
	mux.Handle("GET /admin/transactions", admin(deps.Account.AllTransactions))

	if deps.AlertsHandler != nil {
		mux.Handle("GET /ws/alerts", authenticated(deps.AlertsHandler))
	}
	return mux
}
