package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	jobmetrics "github.com/rinde/rinde/internal/jobs"
	"github.com/rinde/rinde/internal/settlement"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeEnsurer struct {
	mu       sync.Mutex
	calls    []int64
	inserted int64
	failOn   int64
}

func (f *fakeEnsurer) Ensure(_ context.Context, locationID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if locationID == f.failOn {
		return 0, errors.New("db down")
	}
	f.calls = append(f.calls, locationID)
	return f.inserted, nil
}

type fakeLocations []int64

func (f fakeLocations) ActiveIDs(context.Context) ([]int64, error) { return f, nil }

type fakeDashboards struct {
	mu     sync.Mutex
	seen   map[int64]string
	failOn int64
}

func (f *fakeDashboards) Dashboard(_ context.Context, locationID int64, mode, count string) (settlement.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if locationID == f.failOn {
		return settlement.Dashboard{}, errors.New("timeout")
	}
	f.seen[locationID] = mode + "/" + count
	return settlement.Dashboard{}, nil
}

func TestEnsureJobSingleLocation(t *testing.T) {
	ens := &fakeEnsurer{inserted: 7}
	job := NewEnsureJob(ens, fakeLocations{1, 2}, discard(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewEnsureTask(EnsurePayload{LocationID: 9})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{9}, ens.calls)
}

func TestEnsureJobAllLocations(t *testing.T) {
	ens := &fakeEnsurer{inserted: 2}
	job := NewEnsureJob(ens, fakeLocations{1, 2, 3}, discard(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	n, err := job.Run(context.Background(), EnsurePayload{})
	require.NoError(t, err)
	require.Equal(t, int64(6), n)
	require.Equal(t, []int64{1, 2, 3}, ens.calls)

	ens.failOn = 2
	ens.calls = nil
	_, err = job.Run(context.Background(), EnsurePayload{})
	require.Error(t, err)
	require.Equal(t, []int64{1}, ens.calls)
}

func TestEnsureJobBadPayloadSkipsRetry(t *testing.T) {
	job := NewEnsureJob(&fakeEnsurer{}, fakeLocations{}, discard(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskOverridesEnsure, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmupJobFansOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dash := &fakeDashboards{seen: map[int64]string{}}
	job := NewWarmupJob(dash, fakeLocations{1, 2, 3, 4, 5}, discard(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Concurrency = 2

	warmed, err := job.Run(context.Background(), WarmupPayload{Mode: "month", Count: 6})
	require.NoError(t, err)
	require.Equal(t, 5, warmed)
	require.Equal(t, "month/6", dash.seen[3])

	dash.failOn = 4
	warmed, err = job.Run(context.Background(), WarmupPayload{})
	require.Error(t, err)
	require.Equal(t, 4, warmed)
	require.Equal(t, "week/12", dash.seen[5])
}

func TestTaskIDsAreDeterministic(t *testing.T) {
	require.Equal(t, EnsurePayload{LocationID: 3}.TaskID(), EnsurePayload{LocationID: 3}.TaskID())
	require.NotEqual(t, EnsurePayload{LocationID: 3}.TaskID(), EnsurePayload{LocationID: 4}.TaskID())
	require.NotEqual(t, EnsurePayload{}.TaskID(), EnsurePayload{LocationID: 4}.TaskID())
	require.NotEqual(t, WarmupPayload{Mode: "week", Count: 12}.TaskID(), WarmupPayload{Mode: "month", Count: 12}.TaskID())

	task, err := NewWarmupTask(WarmupPayload{Mode: "week", Count: 12})
	require.NoError(t, err)
	require.Equal(t, TaskSettlementWarmup, task.Type())
	var p WarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	require.Equal(t, 12, p.Count)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthHandler(t *testing.T) {
	serve := func(insp QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(insp, discard()).MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rec.Body.String())

	rec = serve(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Active: 1}})
	require.JSONEq(t, `{"queue":"default","pending":3,"active":1,"retry":0}`, rec.Body.String())

	rec = serve(fakeInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogTasksRecordsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	boom := errors.New("boom")

	h := logTasks(logger)(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return boom }))
	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskOverridesEnsure, nil))
	require.ErrorIs(t, err, boom)
	require.Contains(t, buf.String(), `"msg":"task failed"`)
	require.Contains(t, buf.String(), `"task":"`+TaskOverridesEnsure+`"`)

	buf.Reset()
	ok := logTasks(logger)(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return nil }))
	require.NoError(t, ok.ProcessTask(context.Background(), asynq.NewTask(TaskSettlementWarmup, nil)))
	require.Contains(t, buf.String(), `"msg":"task done"`)
}

func TestTaskErrorHandlerLogsExhaustedRetries(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	taskErrorHandler(logger)(context.Background(), asynq.NewTask(TaskSettlementWarmup, nil), errors.New("down"))
	require.Contains(t, buf.String(), `"msg":"task exhausted retries"`)
	require.Contains(t, buf.String(), `"error":"down"`)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Logger:    discard(),
		Cron:      []CronRegistration{{Spec: "not a cron", Task: asynq.NewTask(TaskOverridesEnsure, nil)}},
	})
	require.Error(t, err)
}
