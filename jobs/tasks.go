package jobs

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverridesEnsure provisions override rows for catalog actions.
	TaskOverridesEnsure = "overrides:ensure"
	// TaskSettlementWarmup prebuilds settlement dashboards.
	TaskSettlementWarmup = "settlement:warmup"
)

// taskNamespace seeds deterministic task ids so duplicate enqueues collapse.
var taskNamespace = uuid.MustParse("9a4f7c0e-52d1-4c4b-9a0f-5d8f2b1e6c33")

// EnsurePayload targets one location, or every active location when LocationID is zero.
type EnsurePayload struct {
	LocationID int64 `json:"locationId,omitempty"`
}

// WarmupPayload selects the dashboard variant to prebuild.
type WarmupPayload struct {
	Mode  string `json:"mode"`
	Count int    `json:"count"`
}

// TaskID returns the deterministic id used when enqueuing the ensure task.
func (p EnsurePayload) TaskID() string {
	scope := "all"
	if p.LocationID > 0 {
		scope = strconv.FormatInt(p.LocationID, 10)
	}
	return uuid.NewSHA1(taskNamespace, []byte(TaskOverridesEnsure+":"+scope)).String()
}

// TaskID returns the deterministic id used when enqueuing the warmup task.
func (p WarmupPayload) TaskID() string {
	key := TaskSettlementWarmup + ":" + p.Mode + ":" + strconv.Itoa(p.Count)
	return uuid.NewSHA1(taskNamespace, []byte(key)).String()
}

// NewEnsureTask constructs an Asynq task.
func NewEnsureTask(payload EnsurePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverridesEnsure, data), nil
}

// NewWarmupTask constructs an Asynq task.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettlementWarmup, data), nil
}
