package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rinde/rinde/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Ensurer provisions override rows for a location.
type Ensurer interface {
	Ensure(ctx context.Context, locationID int64) (int64, error)
}

// LocationLister enumerates active locations.
type LocationLister interface {
	ActiveIDs(ctx context.Context) ([]int64, error)
}

// EnsureJob creates missing override rows so catalog additions reach every location.
type EnsureJob struct {
	Actions   Ensurer
	Locations LocationLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewEnsureJob wires dependencies for the ensure handler.
func NewEnsureJob(actions Ensurer, locations LocationLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *EnsureJob {
	return &EnsureJob{Actions: actions, Locations: locations, Logger: logger, Metrics: metrics}
}

// Handle processes overrides:ensure tasks.
func (j *EnsureJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Actions == nil {
		return errors.New("overrides ensure: handler not configured")
	}
	var payload EnsurePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run ensures the payload's locations and returns the number of rows inserted.
func (j *EnsureJob) Run(ctx context.Context, payload EnsurePayload) (inserted int64, resultErr error) {
	tracker := j.metrics().Track(TaskOverridesEnsure)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	start := time.Now()

	ids := []int64{payload.LocationID}
	if payload.LocationID <= 0 {
		if j.Locations == nil {
			return 0, errors.New("overrides ensure: location lister not configured")
		}
		var err error
		ids, err = j.Locations.ActiveIDs(ctx)
		if err != nil {
			j.logger().Error("list locations", slog.Any("error", err))
			return 0, err
		}
	}

	for _, id := range ids {
		n, err := j.Actions.Ensure(ctx, id)
		if err != nil {
			j.logger().Error("ensure overrides", slog.Int64("location_id", id), slog.Any("error", err))
			return inserted, err
		}
		inserted += n
	}
	j.metrics().AddItems(TaskOverridesEnsure, int(inserted))
	j.logger().Info("overrides ensured",
		slog.Int("locations", len(ids)),
		slog.Int64("inserted", inserted),
		slog.Duration("duration", time.Since(start)))
	return inserted, nil
}

func (j *EnsureJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOverridesEnsure))
	}
	return slog.Default().With(slog.String("job", TaskOverridesEnsure))
}

func (j *EnsureJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
