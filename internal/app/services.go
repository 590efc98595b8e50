package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rinde/rinde/internal/actions"
	"github.com/rinde/rinde/internal/auth"
	"github.com/rinde/rinde/internal/ledger"
	"github.com/rinde/rinde/internal/locations"
	"github.com/rinde/rinde/internal/observability"
	"github.com/rinde/rinde/internal/platform/cache"
	"github.com/rinde/rinde/internal/presets"
	"github.com/rinde/rinde/internal/rbac"
	"github.com/rinde/rinde/internal/settlement"
)

// Services holds the domain services shared by the server, worker and CLI.
type Services struct {
	Actions    *actions.Service
	Ledger     *ledger.Service
	Presets    *presets.Service
	Settlement *settlement.Service
	Locations  *locations.Service
	Auth       *auth.Service
	Cache      *cache.Versioned
}

// NewServices wires repositories and services. Ledger and preset writes bump
// the settlement cache version of the touched location. metrics may be nil.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *observability.Metrics) *Services {
	dashboards := cache.NewVersioned(redisClient, "rinde", cfg.DashboardCacheTTL)
	ledgerRepo := ledger.NewRepository(pool)

	settlementSvc := settlement.NewService(ledgerRepo, settlement.NewShareRepository(pool), dashboards, logger)
	if metrics != nil {
		settlementSvc.SetObserver(metrics)
	}

	ledgerSvc := ledger.NewService(ledgerRepo, logger)
	ledgerSvc.SetInvalidator(settlementSvc)

	presetSvc := presets.NewService(presets.NewRepository(pool), cache.NewLocker(redisClient, cfg.PresetLockTTL), logger)
	presetSvc.SetInvalidator(settlementSvc)

	return &Services{
		Actions:    actions.NewService(actions.NewRepository(pool), logger),
		Ledger:     ledgerSvc,
		Presets:    presetSvc,
		Settlement: settlementSvc,
		Locations:  locations.NewService(locations.NewRepository(pool), logger),
		Auth:       auth.NewService(auth.NewRepository(pool)),
		Cache:      dashboards,
	}
}

// WatchInvalidations counts cache bumps from every process until ctx ends.
func (s *Services) WatchInvalidations(ctx context.Context, metrics *observability.Metrics) <-chan struct{} {
	return s.Cache.ListenForInvalidation(ctx, func(scope string, _ int64) {
		metrics.CacheBumped(scope)
	})
}

// RBAC returns the location binding middleware backed by memberships.
func (s *Services) RBAC(logger *slog.Logger) rbac.Middleware {
	return rbac.Middleware{Memberships: s.Locations, Logger: logger}
}
