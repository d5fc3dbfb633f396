package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/follow-comb/app/cache"
	"github.com/lysyi3m/follow-comb/app/feed"
	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/settings"
	"github.com/lysyi3m/follow-comb/app/sheets"
	"github.com/lysyi3m/follow-comb/app/tasks"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]tracker.Profile, error)
	ProfileExists(ctx context.Context, identifier string) (bool, error)
	AddProfile(ctx context.Context, name, identifier string) (bool, error)
	RemoveProfileAndCascade(ctx context.Context, identifier string) (bool, error)
	ListFollowEvents(ctx context.Context) ([]tracker.FollowEvent, error)
	ListUnfollowEvents(ctx context.Context) ([]tracker.UnfollowEvent, error)
}

type NameResolver interface {
	FetchProfileName(ctx context.Context, identifier string) (string, error)
}

type SettingsStore interface {
	Get() settings.Settings
	UpdateSchedule(schedule tasks.WeeklySchedule) error
}

var (
	_ ProfileStore  = (*sheets.Store)(nil)
	_ NameResolver  = (*linkedin.Client)(nil)
	_ SettingsStore = (*settings.Manager)(nil)
)

// ServerInfo is what the handlers need to know about their own deployment.
type ServerInfo struct {
	BaseUrl string
	Port    string
	Version string
}

type Handler struct {
	store      ProfileStore
	names      NameResolver
	dispatcher tasks.DispatcherInterface
	scheduler  tasks.SchedulerInterface
	settings   SettingsStore
	filterer   *feed.Filterer
	feeds      cache.Cache
	feedTTL    time.Duration
	info       ServerInfo
	logger     *slog.Logger
}

type addProfileRequest struct {
	Profile string `json:"profile"`
	Name    string `json:"name"`
}

type importResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

type scheduleRequest struct {
	Days   []string `json:"days"`
	Hour   int      `json:"hour"`
	Minute int      `json:"minute"`
}

type scheduleResponse struct {
	Days        []string `json:"days"`
	Hour        int      `json:"hour"`
	Minute      int      `json:"minute"`
	Description string   `json:"description"`
	NextRun     string   `json:"next_run"`
	NextRunAt   string   `json:"next_run_at,omitempty"`
}

type profileResponse struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	Handle           string `json:"handle"`
	InitiallyScraped bool   `json:"initially_scraped"`
}
