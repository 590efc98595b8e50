package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/rinde/rinde/internal/jobs"
	"github.com/rinde/rinde/internal/settlement"
)

// DashboardBuilder fills the dashboard cache for a location.
type DashboardBuilder interface {
	Dashboard(ctx context.Context, locationID int64, rawMode, rawCount string) (settlement.Dashboard, error)
}

// WarmupJob pre-populates settlement dashboards for active locations.
type WarmupJob struct {
	Dashboards  DashboardBuilder
	Locations   LocationLister
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
}

// NewWarmupJob wires dependencies for the warmup handler.
func NewWarmupJob(dashboards DashboardBuilder, locations LocationLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{Dashboards: dashboards, Locations: locations, Logger: logger, Metrics: metrics, Concurrency: 4}
}

// Handle processes settlement:warmup tasks.
func (j *WarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboards == nil || j.Locations == nil {
		return errors.New("settlement warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run warms every active location and returns how many succeeded. One failing
// location does not stop the others; the first error is returned.
func (j *WarmupJob) Run(ctx context.Context, payload WarmupPayload) (warmed int, resultErr error) {
	if payload.Mode == "" {
		payload.Mode = "week"
	}
	if payload.Count <= 0 {
		payload.Count = settlement.DefaultCount
	}
	tracker := j.metrics().Track(TaskSettlementWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("mode", payload.Mode), slog.Int("count", payload.Count))
	start := time.Now()
	ids, err := j.Locations.ActiveIDs(ctx)
	if err != nil {
		logger.Error("list locations", slog.Any("error", err))
		return 0, err
	}
	if len(ids) == 0 {
		logger.Info("no locations to warm")
		return 0, nil
	}

	limit := j.Concurrency
	if limit <= 0 {
		limit = 1
	}
	var ok atomic.Int64
	var g errgroup.Group
	g.SetLimit(limit)
	count := strconv.Itoa(payload.Count)
	for _, id := range ids {
		g.Go(func() error {
			scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			defer cancel()
			if _, err := j.Dashboards.Dashboard(scopeCtx, id, payload.Mode, count); err != nil {
				logger.Error("warm location", slog.Int64("location_id", id), slog.Any("error", err))
				return err
			}
			ok.Add(1)
			return nil
		})
	}
	err = g.Wait()
	warmed = int(ok.Load())
	j.metrics().AddItems(TaskSettlementWarmup, warmed)
	logger.Info("completed settlement warmup", slog.Int("locations", warmed), slog.Duration("duration", time.Since(start)))
	return warmed, err
}

func (j *WarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSettlementWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSettlementWarmup))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
