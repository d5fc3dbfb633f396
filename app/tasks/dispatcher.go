package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type Notifier interface {
	Notify(ctx context.Context, summary tracker.RunSummary) error
}

// RunState is what the dispatcher knows about the current and the last pass.
type RunState struct {
	Running   bool                `json:"running"`
	RunID     string              `json:"run_id,omitempty"`
	Type      TaskType            `json:"type,omitempty"`
	Status    string              `json:"status,omitempty"`
	StartedAt *time.Time          `json:"started_at,omitempty"`
	Last      *tracker.RunSummary `json:"last,omitempty"`
	LastError string              `json:"last_error,omitempty"`
	ErrorCode string              `json:"error_code,omitempty"`
}

// ErrorCodeAPIUnavailable marks a pass in which the directory API stayed
// unavailable after all retries.
const ErrorCodeAPIUnavailable = "api_unavailable"

var _ DispatcherInterface = (*Dispatcher)(nil)

// Dispatcher is the single entry point for passes, whether scheduled,
// requested over the API or run once from the command line.
type Dispatcher struct {
	orchestrator *Orchestrator
	guard        Guard
	notifier     Notifier
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	state RunState
}

// NewDispatcher wires a dispatcher. A nil notifier disables notifications.
func NewDispatcher(orchestrator *Orchestrator, guard Guard, notifier Notifier, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		orchestrator: orchestrator,
		guard:        guard,
		notifier:     notifier,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Trigger starts a pass in the background and returns its ID. It returns
// ErrRunInProgress without doing anything while another pass is active.
func (d *Dispatcher) Trigger(taskType TaskType) (string, error) {
	if err := d.ctx.Err(); err != nil {
		return "", err
	}

	release, err := d.guard.Acquire(d.ctx)
	if err != nil {
		return "", err
	}

	task := NewTask(taskType)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer release()
		d.execute(d.ctx, task, Callbacks{})
	}()

	return task.ID, nil
}

// RunNow runs a pass in the calling goroutine.
func (d *Dispatcher) RunNow(ctx context.Context, taskType TaskType, cb Callbacks) (tracker.RunSummary, error) {
	release, err := d.guard.Acquire(ctx)
	if err != nil {
		return tracker.RunSummary{}, err
	}
	defer release()

	return d.execute(ctx, NewTask(taskType), cb)
}

func (d *Dispatcher) State() RunState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Stop cancels an active background pass and waits for it to return.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, task Task, cb Callbacks) (tracker.RunSummary, error) {
	d.begin(task)

	status := cb.Status
	cb.Status = func(message string) {
		d.setStatus(message)
		if status != nil {
			status(message)
		}
	}

	summary, err := d.orchestrator.RunTask(ctx, task, cb)
	d.finish(summary, err)

	if err != nil {
		d.logger.Error("Run failed", "run_id", task.ID, "type", string(task.Type), "error", err)
	}

	if d.notifier == nil || errors.Is(err, context.Canceled) {
		return summary, err
	}
	// A run that could not even list profiles has nothing worth sending.
	if err != nil && summary.ProfilesProcessed == 0 && len(summary.Failures) == 0 {
		return summary, err
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if nerr := d.notifier.Notify(notifyCtx, summary); nerr != nil {
		d.logger.Error("Failed to send run summary", "run_id", task.ID, "error", nerr)
	}

	return summary, err
}

func (d *Dispatcher) begin(task Task) {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Running = true
	d.state.RunID = task.ID
	d.state.Type = task.Type
	d.state.StartedAt = &now
	d.state.Status = ""
}

func (d *Dispatcher) setStatus(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = message
}

func (d *Dispatcher) finish(summary tracker.RunSummary, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Running = false
	d.state.Last = &summary
	d.state.LastError = ""
	d.state.ErrorCode = ""
	if err != nil {
		d.state.LastError = err.Error()
	}
	if errors.Is(err, linkedin.ErrUnavailable) {
		d.state.ErrorCode = ErrorCodeAPIUnavailable
	}
}
