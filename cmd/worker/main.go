package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rinde/rinde/internal/app"
	jobmetrics "github.com/rinde/rinde/internal/jobs"
	"github.com/rinde/rinde/internal/platform/cache"
	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/internal/settlement"
	"github.com/rinde/rinde/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	services := app.NewServices(cfg, pool, redisClient, logger, nil)
	metrics := jobmetrics.NewMetrics(nil)

	ensureJob := jobs.NewEnsureJob(services.Actions, services.Locations, logger, metrics)
	warmupJob := jobs.NewWarmupJob(services.Settlement, services.Locations, logger, metrics)
	warmupJob.Concurrency = cfg.WorkerConcurrency

	ensureTask, err := jobs.NewEnsureTask(jobs.EnsurePayload{})
	if err != nil {
		logger.Error("build ensure task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewWarmupTask(jobs.WarmupPayload{Mode: "week", Count: settlement.DefaultCount})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverridesEnsure, Handler: ensureJob.Handle},
			{Type: jobs.TaskSettlementWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.EnsureCron, Task: ensureTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
