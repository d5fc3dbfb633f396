package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

// DispatcherInterface is used by the control API and the CLI to start
// passes and read their state.
type DispatcherInterface interface {
	Trigger(taskType TaskType) (string, error)
	RunNow(ctx context.Context, taskType TaskType, cb Callbacks) (tracker.RunSummary, error)
	State() RunState
	Stop()
}

// SchedulerInterface controls the weekly trigger.
// Example usage:
//
//	scheduler := NewScheduler(dispatcher, DefaultSchedule(), time.Local, logger)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.SetSchedule(WeeklySchedule{Days: []time.Weekday{time.Friday}, Hour: 17})
type SchedulerInterface interface {
	Start()
	Stop()
	Schedule() WeeklySchedule
	SetSchedule(schedule WeeklySchedule) error
	NextRun() (time.Time, bool)
}
