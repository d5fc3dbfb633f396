package api

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/follow-comb/app/cache"
	"github.com/lysyi3m/follow-comb/app/feed"
	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/tasks"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

const (
	maxImportSize = 1 << 20
	feedPath      = "/feeds/events"
)

func NewHandler(store ProfileStore, names NameResolver,
	dispatcher tasks.DispatcherInterface, scheduler tasks.SchedulerInterface,
	settings SettingsStore, info ServerInfo, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		names:      names,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		settings:   settings,
		filterer:   feed.NewFilterer(),
		info:       info,
		logger:     logger,
	}
}

// WithFeedCache serves rendered feeds from c for ttl. A zero ttl leaves
// caching off.
func (h *Handler) WithFeedCache(c cache.Cache, ttl time.Duration) *Handler {
	if ttl > 0 {
		h.feeds = c
		h.feedTTL = ttl
	}
	return h
}

func (h *Handler) GetEventsFeed(c *gin.Context) {
	ctx := c.Request.Context()
	s := h.settings.Get()

	var cacheKey string
	if h.feeds != nil {
		cacheKey = cache.FeedKey(c.Request.URL.Path, c.Request.URL.RawQuery)
		rss, ok, err := h.feeds.Get(ctx, cacheKey)
		if err != nil {
			h.logger.Warn("Feed cache read failed", "key", cacheKey, "error", err)
		} else if ok {
			c.Header("Content-Type", "application/xml; charset=utf-8")
			c.Header("X-Cache", "HIT")
			c.String(http.StatusOK, rss)
			return
		}
	}

	follows, err := h.store.ListFollowEvents(ctx)
	if err != nil {
		h.logger.Error("Store error", "operation", "list_follows", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	unfollows, err := h.store.ListUnfollowEvents(ctx)
	if err != nil {
		h.logger.Error("Store error", "operation", "list_unfollows", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	filters := append(s.Feed.Filters, queryFilters(c)...)
	items := h.filterer.Run(feed.FromEvents(follows, unfollows), filters)
	if s.Feed.MaxItems > 0 && len(items) > s.Feed.MaxItems {
		items = items[:s.Feed.MaxItems]
	}

	generator := feed.NewGenerator(feed.Channel{
		Title:   s.Feed.Title,
		Link:    s.SpreadsheetLink,
		SelfURL: h.selfURL(feedPath),
		Version: h.info.Version,
	})

	rss, err := generator.Run(items)
	if err != nil {
		h.logger.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.feeds != nil {
		if err := h.feeds.Set(ctx, cacheKey, rss, h.feedTTL); err != nil {
			h.logger.Warn("Feed cache write failed", "key", cacheKey, "error", err)
		}
		c.Header("X-Cache", "MISS")
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))

	c.String(http.StatusOK, rss)
}

func queryFilters(c *gin.Context) []feed.Filter {
	var filters []feed.Filter
	for _, field := range []string{"company", "follower", "kind"} {
		if v := strings.TrimSpace(c.Query(field)); v != "" {
			filters = append(filters, feed.Filter{Field: field, Includes: []string{v}})
		}
	}
	return filters
}

func (h *Handler) selfURL(path string) string {
	if h.info.BaseUrl != "" {
		return strings.TrimRight(h.info.BaseUrl, "/") + path
	}
	return fmt.Sprintf("http://localhost:%s%s", h.info.Port, path)
}

func (h *Handler) GetHealth(c *gin.Context) {
	state := h.dispatcher.State()
	next, ok := h.scheduler.NextRun()

	health := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.info.Version,
		"running":   state.Running,
		"next_run":  tasks.FormatNextRun(next, ok),
	}
	if state.Last != nil {
		health["last_run_at"] = state.Last.FinishedAt.Format(time.RFC3339)
	}
	if h.feeds != nil {
		health["cache"] = h.feeds.Health(c.Request.Context())
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListProfiles(c *gin.Context) {
	profiles, err := h.store.ListProfiles(c.Request.Context())
	if err != nil {
		h.logger.Error("Store error", "operation", "list_profiles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read profiles", "details": err.Error()})
		return
	}

	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileResponse{
			Name:             p.Name,
			URL:              p.URL,
			Handle:           p.Handle,
			InitiallyScraped: p.InitiallyScraped,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"profiles": out,
		"total":    len(out),
	})
}

func (h *Handler) APIAddProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var req addProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	identifier := strings.TrimSpace(req.Profile)
	if !tracker.ValidProfileIdentifier(identifier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile URL or handle"})
		return
	}

	exists, err := h.store.ProfileExists(ctx, identifier)
	if err != nil {
		h.logger.Error("Store error", "operation", "profile_exists", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read profiles", "details": err.Error()})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Profile is already tracked"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, err = h.names.FetchProfileName(ctx, identifier)
		if errors.Is(err, linkedin.ErrUnavailable) {
			h.respondUnavailable(c, err)
			return
		}
		if err != nil {
			h.logger.Warn("Profile name lookup failed", "profile", identifier, "error", err)
		}
		name = cmp.Or(name, tracker.FollowerKey(identifier), "Unknown")
	}

	added, err := h.store.AddProfile(ctx, name, identifier)
	if err != nil {
		h.logger.Error("Store error", "operation", "add_profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add profile", "details": err.Error()})
		return
	}
	if !added {
		c.JSON(http.StatusConflict, gin.H{"error": "Profile is already tracked"})
		return
	}

	c.JSON(http.StatusCreated, profileResponse{
		Name:   name,
		URL:    tracker.CanonicalProfileURL(identifier),
		Handle: tracker.FollowerKey(identifier),
	})
}

// APIImportProfiles accepts a CSV body, either raw or as a multipart "file"
// field. Name lookups that fail fall back to the profile handle.
func (h *Handler) APIImportProfiles(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := importBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read CSV", "details": err.Error()})
		return
	}
	defer body.Close()

	identifiers, err := tracker.ParseProfileList(io.LimitReader(body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse CSV", "details": err.Error()})
		return
	}
	if len(identifiers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No profiles found. The CSV should have a 'LinkedIn Profile' column or one profile URL per line.",
		})
		return
	}

	result := importResult{Errors: []string{}}
	for _, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			return
		}

		if !tracker.ValidProfileIdentifier(identifier) {
			result.Errors = append(result.Errors, "Invalid URL: "+truncate(identifier, 60))
			continue
		}

		exists, err := h.store.ProfileExists(ctx, identifier)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", truncate(identifier, 60), err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		name, err := h.names.FetchProfileName(ctx, identifier)
		if err != nil {
			h.logger.Warn("Profile name lookup failed", "profile", identifier, "error", err)
		}
		name = cmp.Or(name, tracker.FollowerKey(identifier), "Unknown")

		added, err := h.store.AddProfile(ctx, name, identifier)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", truncate(identifier, 60), err))
		case added:
			result.Added++
		default:
			result.Skipped++
		}
	}

	h.logger.Info("Profiles imported", "added", result.Added, "skipped", result.Skipped, "errors", len(result.Errors))
	c.JSON(http.StatusOK, result)
}

func importBody(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		return fh.Open()
	}
	return c.Request.Body, nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func (h *Handler) APIDeleteProfile(c *gin.Context) {
	identifier := strings.TrimSpace(c.Param("identifier"))
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing profile identifier"})
		return
	}

	removed, err := h.store.RemoveProfileAndCascade(c.Request.Context(), identifier)
	if err != nil {
		h.logger.Error("Store error", "operation", "remove_profile", "profile", identifier, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove profile", "details": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	// Drop the unfiltered feed, the cascade removed some of its events.
	// Filtered feeds expire with their TTL.
	if h.feeds != nil {
		key := cache.FeedKey(feedPath, "")
		if err := h.feeds.Delete(c.Request.Context(), key); err != nil {
			h.logger.Warn("Feed cache delete failed", "key", key, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "removed": identifier})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	runID, err := h.dispatcher.Trigger(tasks.TaskTypeManualRun)
	if errors.Is(err, tasks.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "A run is already in progress"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to trigger run", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to start run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"type":   tasks.TaskTypeManualRun,
	})
}

func (h *Handler) APIGetLastRun(c *gin.Context) {
	state := h.dispatcher.State()
	if !state.Running && state.Last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run yet"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) APIGetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduleResponse(h.scheduler.Schedule()))
}

func (h *Handler) APIUpdateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	days, err := tasks.ParseWeekdays(req.Days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule", "details": err.Error()})
		return
	}
	schedule := tasks.WeeklySchedule{Days: days, Hour: req.Hour, Minute: req.Minute}
	if err := schedule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule", "details": err.Error()})
		return
	}

	if err := h.settings.UpdateSchedule(schedule); err != nil {
		h.logger.Error("Failed to save schedule", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save schedule", "details": err.Error()})
		return
	}
	if err := h.scheduler.SetSchedule(schedule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply schedule", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.scheduleResponse(schedule))
}

func (h *Handler) scheduleResponse(schedule tasks.WeeklySchedule) scheduleResponse {
	next, ok := h.scheduler.NextRun()
	resp := scheduleResponse{
		Days:        schedule.DayNames(),
		Hour:        schedule.Hour,
		Minute:      schedule.Minute,
		Description: schedule.String(),
		NextRun:     tasks.FormatNextRun(next, ok),
	}
	if ok {
		resp.NextRunAt = next.Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) respondUnavailable(c *gin.Context, err error) {
	h.logger.Error("Directory API unavailable", "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": linkedin.ErrUnavailable.Error(),
		"code":  tasks.ErrorCodeAPIUnavailable,
	})
}
