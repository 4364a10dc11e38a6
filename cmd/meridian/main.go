package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridian-crm/meridian-crm/internal/app"
	"github.com/meridian-crm/meridian-crm/internal/assignments"
	"github.com/meridian-crm/meridian-crm/internal/auth"
	"github.com/meridian-crm/meridian-crm/internal/authz"
	"github.com/meridian-crm/meridian-crm/internal/observability"
	"github.com/meridian-crm/meridian-crm/internal/platform/cache"
	"github.com/meridian-crm/meridian-crm/internal/platform/db"
	"github.com/meridian-crm/meridian-crm/internal/roles"
	"github.com/meridian-crm/meridian-crm/internal/shared"
	"github.com/meridian-crm/meridian-crm/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	rolesRepo := roles.NewRepository(pool)
	assignmentsRepo := assignments.NewRepository(pool)
	usersRepo := users.NewRepository(pool)

	permCache := authz.NewCache(cfg.AuthzCacheTTL)
	resolver := authz.NewResolver(roles.NewStore(rolesRepo), logger)
	engine := authz.NewService(assignments.NewStore(assignmentsRepo), resolver, permCache, logger, metrics)

	fanout := authz.NewFanout(redisClient, permCache, "", logger)
	go func() {
		if err := fanout.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("invalidation listener stopped", slog.Any("error", err))
		}
	}()

	rolesService := roles.NewService(rolesRepo, fanout, logger)
	if err := rolesService.Seed(ctx); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	assignmentsService := assignments.NewService(assignmentsRepo, fanout, logger)
	usersService := users.NewService(usersRepo, fanout, logger)
	authService := auth.NewService(usersRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, fanout),
		AuthzHandler:       authz.NewHandler(logger, engine),
		RolesHandler:       roles.NewHandler(logger, rolesService),
		UsersHandler:       users.NewHandler(logger, usersService),
		AssignmentsHandler: assignments.NewHandler(logger, assignmentsService),
		AuthzMiddleware:    authz.Middleware{Service: engine, Logger: logger},
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}
