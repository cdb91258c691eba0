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

	"github.com/KyleQD/Flow-sub006/internal/app"
	"github.com/KyleQD/Flow-sub006/internal/authz"
	"github.com/KyleQD/Flow-sub006/internal/platform/cache"
	"github.com/KyleQD/Flow-sub006/internal/platform/db"
	"github.com/KyleQD/Flow-sub006/internal/roles"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Invalidation fan-out degrades to local-only eviction.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	store := authz.NewRepository(pool)
	resolver := authz.NewResolver(store)
	contextCache := authz.NewContextCache(resolver, authz.CacheOptions{
		PermissionTTL: cfg.PermissionCacheTTL,
		IsolationTTL:  cfg.IsolationCacheTTL,
		Size:          cfg.ContextCacheSize,
	})
	broadcaster := authz.NewBroadcaster(redisClient, logger)
	go broadcaster.Listen(ctx, contextCache)

	ruleEngine := authz.NewRuleEngine(store, logger)
	auditor := authz.NewAuditor(store, logger)
	authzService := authz.NewService(store, contextCache, ruleEngine, auditor, broadcaster, logger)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, authzService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthzHandler:    authz.NewHandler(logger, authzService),
		RolesHandler:    roles.NewHandler(logger, rolesService),
		AuthzMiddleware: authz.Middleware{Service: authzService, Logger: logger},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
