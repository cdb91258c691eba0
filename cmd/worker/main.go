package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/KyleQD/Flow-sub006/internal/app"
	"github.com/KyleQD/Flow-sub006/internal/authz"
	"github.com/KyleQD/Flow-sub006/internal/platform/cache"
	"github.com/KyleQD/Flow-sub006/internal/platform/db"
	"github.com/KyleQD/Flow-sub006/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	retentionJob := jobs.NewAuditRetentionJob(pool, logger, cfg.AuditRetention)
	warmupJob := jobs.NewContextWarmupJob(authzService, pool, logger)

	retentionTask, err := jobs.NewAuditRetentionTask(jobs.AuditRetentionPayload{Retention: cfg.AuditRetention})
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewContextWarmupTask(jobs.ContextWarmupPayload{Window: time.Hour, Limit: 200})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditRetention, Handler: retentionJob.Handle},
			{Type: jobs.TaskContextWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: retentionTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: "*/30 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
