package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "parkpay/backend/libs/db"
	libredis "parkpay/backend/libs/redis"
	"parkpay/backend/services/parking-service/internal/alerts"
	"parkpay/backend/services/parking-service/internal/config"
	"parkpay/backend/services/parking-service/internal/events"
	httpserver "parkpay/backend/services/parking-service/internal/http"
	"parkpay/backend/services/parking-service/internal/http/handlers"
	"parkpay/backend/services/parking-service/internal/http/middleware"
	"parkpay/backend/services/parking-service/internal/payment"
	redisstore "parkpay/backend/services/parking-service/internal/redis"
	"parkpay/backend/services/parking-service/internal/repository"
	"parkpay/backend/services/parking-service/internal/service"
)

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	worker      *service.ExpiryWorker
	hub         *alerts.Hub
	db          *sql.DB
	redisClient *redis.Client
	publisher   *events.AMQPPublisher
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN, cfg.DBOptions())
	if err != nil {
		return nil, err
	}
	a := &App{db: sqlDB, logger: logger}

	if cfg.Database.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := repository.Migrate(ctx, sqlDB)
		cancel()
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var cache service.ActiveCache
	checks := map[string]handlers.Check{"postgres": sqlDB.PingContext}
	if cfg.Redis.Addr != "" {
		a.redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		cache = redisstore.NewStore(a.redisClient, cfg.Redis.Prefix)
		client := a.redisClient
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		logger.Warn("redis not configured, active session cache disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		a.publisher = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		publisher = a.publisher
	}

	var processor payment.Processor
	switch cfg.Payment.Mode {
	case config.PaymentHTTP:
		processor = payment.NewHTTPProcessor(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.PaymentTimeout(), nil, logger)
	default:
		logger.Warn("using simulated payment processor")
		processor = payment.NewSimulatedProcessor(cfg.Payment.Limit)
	}

	a.hub = alerts.NewHub(cfg.Alerts.PingInterval, logger)
	alertServer := alerts.NewServer(a.hub, cfg.Alerts.AllowedOrigins, cfg.Alerts.WriteTimeout, logger)

	parkingSvc := service.NewParkingService(service.Deps{
		Zones:        repository.NewZoneRepository(sqlDB),
		Vehicles:     repository.NewVehicleRepository(sqlDB),
		Sessions:     repository.NewSessionRepository(sqlDB),
		Transactions: repository.NewTransactionRepository(sqlDB),
		Processor:    processor,
		Cache:        cache,
		Publisher:    publisher,
		Notifier:     a.hub,
		Rates:        cfg.Rates(),
		Logger:       logger,
	})
	a.worker = service.NewExpiryWorker(parkingSvc, cfg.Worker.Interval, cfg.Worker.WarningWindow, logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Zones:         handlers.NewZonesHandlers(parkingSvc, logger),
		Sessions:      handlers.NewSessionsHandlers(parkingSvc, logger),
		Account:       handlers.NewAccountHandlers(parkingSvc, logger),
		AlertsHandler: handlers.NewAlertsHandler(alertServer),
		HealthHandler: handlers.NewHealthHandler(checks),
	}, middleware.AuthMiddleware(cfg.JWT.Secret))

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run starts the alert hub, the expiry worker and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Start(ctx)
	go a.worker.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close amqp publisher", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
