package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeCaptureRun       = "capture:run"
	TypeSchedulerTick    = "scheduler:tick"
	TypeBlocklistRefresh = "newsletter:refresh_domains"
)

// CaptureRunPayload executes one scheduled capture.
type CaptureRunPayload struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
}

func NewCaptureRunTask(payload CaptureRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCaptureRun, data), nil
}

// SchedulerTickPayload is empty - the tick scans all enabled schedules.
type SchedulerTickPayload struct{}

func NewSchedulerTickTask() *asynq.Task {
	return asynq.NewTask(TypeSchedulerTick, nil)
}

func NewBlocklistRefreshTask() *asynq.Task {
	return asynq.NewTask(TypeBlocklistRefresh, nil)
}
