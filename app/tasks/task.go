package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeManualRun    TaskType = "manual_run"
	TaskTypeScheduledRun TaskType = "scheduled_run"
	TaskTypeCLIRun       TaskType = "cli_run"
)

// Task identifies one reconciliation pass.
type Task struct {
	ID        string
	Type      TaskType
	StartedAt *time.Time
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func NewTask(taskType TaskType) Task {
	return Task{
		ID:   uuid.NewString(),
		Type: taskType,
	}
}
