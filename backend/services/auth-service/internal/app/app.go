package app

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	libdb "parkpay/backend/libs/db"
	appconfig "parkpay/backend/services/auth-service/internal/config"
	"parkpay/backend/services/auth-service/internal/http"
	"parkpay/backend/services/auth-service/internal/http/handlers"
	"parkpay/backend/services/auth-service/internal/password"
	"parkpay/backend/services/auth-service/internal/repository"
	"parkpay/backend/services/auth-service/internal/service"
)

// App wires dependencies for the auth service.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN, libdb.Options{})
	if err != nil {
		return nil, err
	}
	a := &App{db: sqlDB, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, sqlDB); err != nil {
			a.Close()
			return nil, err
		}
	}

	userRepo := repository.NewUserRepository(sqlDB)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration())
	authSvc := service.NewAuthService(userRepo, hasher, tokenSvc, logger)

	if cfg.Admin.Email != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			a.Close()
			return nil, err
		}
	}

	routes := httpserver.Routes{
		Signup: handlers.NewSignupHandler(authSvc, logger),
		Login:  handlers.NewLoginHandler(authSvc, tokenSvc.TTL(), logger),
		Users:  handlers.NewUsersHandler(authSvc, logger),
		Health: handlers.NewHealthHandler(sqlDB.PingContext),
	}

	router := httpserver.NewRouter(routes, tokenSvc)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger)
	return a, nil
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
