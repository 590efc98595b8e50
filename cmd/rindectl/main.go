package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rinde/rinde/cmd/rindectl/cli"
	"github.com/rinde/rinde/internal/app"
	"github.com/rinde/rinde/internal/platform/cache"
	"github.com/rinde/rinde/internal/platform/db"
	"github.com/rinde/rinde/jobs"
)

func main() {
	if app.InTestMode() {
		return
	}
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "connect redis: %v\n", err)
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "jobs client: %v\n", err)
		return 1
	}
	defer func() { _ = jobClient.Close() }()

	services := app.NewServices(cfg, pool, redisClient, logger, nil)
	root := cli.RootCommand(&cli.Deps{
		Actions:    services.Actions,
		Locations:  services.Locations,
		Users:      services.Auth,
		Settlement: services.Settlement,
		Jobs:       jobClient,
		Stdout:     os.Stdout,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
