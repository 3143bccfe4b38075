package app

import (
	"context"

	"go.uber.org/zap"

	"parkpay/backend/services/api-gateway/internal/clients"
	"parkpay/backend/services/api-gateway/internal/config"
	httpserver "parkpay/backend/services/api-gateway/internal/http"
	"parkpay/backend/services/api-gateway/internal/http/handlers"
	"parkpay/backend/services/api-gateway/internal/http/middleware"
)

// App wires API gateway dependencies.
type App struct {
	server *httpserver.Server
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())

	authUpstream := clients.NewUpstream("auth service", cfg.Services.AuthURL, httpClient)
	parkingUpstream := clients.NewUpstream("parking service", cfg.Services.ParkingURL, httpClient)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Proxy:         handlers.NewProxyHandlers(authUpstream, parkingUpstream, logger),
		HealthHandler: handlers.NewHealthHandler(),
	}, middleware.AuthMiddleware(cfg.JWT.Secret))

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		cfg.HTTPTimeout(),
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server: server,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}
