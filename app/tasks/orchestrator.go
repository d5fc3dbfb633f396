package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/reconcile"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]tracker.Profile, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, profile tracker.Profile) (reconcile.Delta, error)
}

// Callbacks report the progress of a run. Both are optional.
type Callbacks struct {
	Status   func(message string)
	Progress func(profile string, follows, unfollows int)
}

func (c Callbacks) status(format string, args ...any) {
	if c.Status != nil {
		c.Status(fmt.Sprintf(format, args...))
	}
}

func (c Callbacks) progress(profile string, follows, unfollows int) {
	if c.Progress != nil {
		c.Progress(profile, follows, unfollows)
	}
}

// Orchestrator runs one pass over all tracked profiles.
type Orchestrator struct {
	profiles ProfileLister
	engine   Reconciler
	logger   *slog.Logger
}

func NewOrchestrator(profiles ProfileLister, engine Reconciler, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		profiles: profiles,
		engine:   engine,
		logger:   logger,
	}
}

func (o *Orchestrator) Run(ctx context.Context, cb Callbacks) (tracker.RunSummary, error) {
	return o.RunTask(ctx, NewTask(TaskTypeManualRun), cb)
}

// RunTask reconciles every profile in list order. A failing profile is
// reported and skipped; its changes are not counted. The returned error wraps
// linkedin.ErrUnavailable when any profile failed because of it.
func (o *Orchestrator) RunTask(ctx context.Context, task Task, cb Callbacks) (tracker.RunSummary, error) {
	task.Start()
	summary := tracker.RunSummary{
		RunID:     task.ID,
		StartedAt: *task.StartedAt,
	}
	logger := o.logger.With("run_id", task.ID, "type", string(task.Type))

	cb.status("Loading profiles...")
	profiles, err := o.profiles.ListProfiles(ctx)
	if err != nil {
		summary.FinishedAt = time.Now()
		cb.status("Failed to load profiles: %v", err)
		return summary, fmt.Errorf("failed to list profiles: %w", err)
	}

	logger.Info("Run started", "profiles", len(profiles))
	if len(profiles) == 0 {
		cb.status("No profiles to scrape")
	}

	var unavailable error
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = time.Now()
			logger.Warn("Run cancelled", "processed", summary.ProfilesProcessed)
			return summary, err
		}

		name := profile.DisplayName()
		cb.status("Scraping %s (%d/%d)", name, i+1, len(profiles))

		delta, err := o.engine.Reconcile(ctx, profile)
		if err != nil {
			summary.Failures = append(summary.Failures, tracker.ProfileFailure{
				Profile: name,
				Error:   err.Error(),
			})
			if errors.Is(err, linkedin.ErrUnavailable) {
				unavailable = err
				cb.status("%s: %v", name, linkedin.ErrUnavailable)
			} else {
				cb.status("%s (error: %v)", name, err)
			}
			logger.Error("Failed to reconcile profile", "profile", profile.Handle, "error", err)
			continue
		}

		summary.ProfilesProcessed++
		summary.NewFollows = append(summary.NewFollows, delta.NewFollows...)
		summary.NewUnfollows = append(summary.NewUnfollows, delta.NewUnfollows...)
		cb.progress(name, summary.FollowCount(), summary.UnfollowCount())
	}

	summary.FinishedAt = time.Now()
	logger.Info("Run finished",
		"processed", summary.ProfilesProcessed,
		"failed", len(summary.Failures),
		"new_follows", summary.FollowCount(),
		"new_unfollows", summary.UnfollowCount(),
		"duration", summary.Duration().String())
	cb.status("Done: %d profiles, %d new follows, %d new unfollows",
		summary.ProfilesProcessed, summary.FollowCount(), summary.UnfollowCount())

	if unavailable != nil {
		return summary, fmt.Errorf("run finished with failures: %w", unavailable)
	}
	return summary, nil
}
