package tasks

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

type Triggerer interface {
	Trigger(taskType TaskType) (string, error)
}

var _ SchedulerInterface = (*Scheduler)(nil)

// Scheduler triggers a pass at every firing time of a WeeklySchedule. The
// wall clock is checked at least once per pollInterval so suspends and clock
// changes do not make it miss a run by much.
type Scheduler struct {
	dispatcher   Triggerer
	location     *time.Location
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu       sync.RWMutex
	schedule WeeklySchedule
	reset    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(dispatcher Triggerer, schedule WeeklySchedule, location *time.Location, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if location == nil {
		location = time.Local
	}

	return &Scheduler{
		dispatcher:   dispatcher,
		location:     location,
		pollInterval: time.Minute,
		now:          time.Now,
		logger:       logger,
		schedule:     schedule,
		reset:        make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		next, ok := s.NextRun()
		s.logNext(next, ok)

		for {
			wait := s.pollInterval
			if ok {
				if until := next.Sub(s.now()); until < wait {
					wait = until
				}
			}
			timer := time.NewTimer(wait)

			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-s.reset:
				timer.Stop()
				next, ok = s.NextRun()
				s.logNext(next, ok)
			case <-timer.C:
				if ok && !s.now().Before(next) {
					s.fire()
					next, ok = s.NextRun()
					s.logNext(next, ok)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) Schedule() WeeklySchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch := s.schedule
	sch.Days = slices.Clone(sch.Days)
	return sch
}

// SetSchedule replaces the schedule and re-arms the timer.
func (s *Scheduler) SetSchedule(schedule WeeklySchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.schedule = schedule
	s.mu.Unlock()

	select {
	case s.reset <- struct{}{}:
	default:
	}

	s.logger.Info("Schedule updated", "schedule", schedule.String())
	return nil
}

func (s *Scheduler) NextRun() (time.Time, bool) {
	return s.Schedule().Next(s.now().In(s.location))
}

func (s *Scheduler) fire() {
	runID, err := s.dispatcher.Trigger(TaskTypeScheduledRun)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("Scheduled run skipped, another run is in progress")
	case err != nil:
		s.logger.Error("Failed to start scheduled run", "error", err)
	default:
		s.logger.Info("Scheduled run started", "run_id", runID)
	}
}

func (s *Scheduler) logNext(next time.Time, ok bool) {
	if !ok {
		s.logger.Info("No scheduled runs")
		return
	}
	s.logger.Info("Next scheduled run", "at", FormatNextRun(next, ok))
}
