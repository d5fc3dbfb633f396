package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/lysyi3m/follow-comb/app/api"
	"github.com/lysyi3m/follow-comb/app/cache"
	"github.com/lysyi3m/follow-comb/app/cfg"
	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/notify"
	"github.com/lysyi3m/follow-comb/app/reconcile"
	"github.com/lysyi3m/follow-comb/app/retry"
	"github.com/lysyi3m/follow-comb/app/settings"
	"github.com/lysyi3m/follow-comb/app/sheets"
	"github.com/lysyi3m/follow-comb/app/tasks"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

const runLockKey = "follow-comb:run-lock"

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(appCfg, logger); err != nil {
		logger.Error("Follow Comb stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting Follow Comb", "version", appCfg.Version)

	settingsManager := settings.NewManager(appCfg.SettingsFile)
	if err := settingsManager.Load(); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	current := settingsManager.Get()

	var opts []option.ClientOption
	if appCfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(appCfg.CredentialsFile))
	}
	backend, err := sheets.NewGoogleBackend(ctx, appCfg.SpreadsheetID, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to spreadsheet: %w", err)
	}

	store := sheets.NewStore(backend, current.Tables,
		retry.NewFixedPolicy(appCfg.StoreRetryAttempts, appCfg.StoreRetryDelay), logger)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}
	logger.Info("Spreadsheet ready", "spreadsheet_id", appCfg.SpreadsheetID)

	client := linkedin.NewClient(&http.Client{Timeout: appCfg.HTTPTimeout}, linkedin.Config{
		BaseURL:     appCfg.RapidAPIBaseURL,
		APIKey:      appCfg.RapidAPIKey,
		APIHost:     appCfg.RapidAPIHost,
		UserAgent:   appCfg.UserAgent,
		Timeout:     appCfg.HTTPTimeout,
		MaxAttempts: appCfg.RetryAttempts,
		RetryDelay:  appCfg.RetryDelay,
	}, logger)

	engine := reconcile.NewEngine(client, store, logger).WithClock(appCfg.Now)
	orchestrator := tasks.NewOrchestrator(store, engine, logger)

	var (
		guard     tasks.Guard = tasks.NewLocalGuard()
		feedCache cache.Cache = cache.NewMemoryCache()
	)
	if appCfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Connected to Redis", "addr", appCfg.RedisAddr)

		guard = tasks.NewRedisGuard(redisClient, runLockKey, appCfg.LockTTL, logger)
		feedCache = cache.NewRedisCache(redisClient, "follow-comb:")
	}

	dispatcher := tasks.NewDispatcher(orchestrator, guard, newNotifier(appCfg, settingsManager, logger), logger)
	defer dispatcher.Stop()

	if appCfg.Once {
		return runOnce(ctx, dispatcher, os.Stdout, logger)
	}

	schedule, err := current.WeeklySchedule()
	if err != nil {
		return fmt.Errorf("invalid schedule in settings: %w", err)
	}
	scheduler := tasks.NewScheduler(dispatcher, schedule, appCfg.Location, logger)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(store, client, dispatcher, scheduler, settingsManager, api.ServerInfo{
		BaseUrl: appCfg.BaseUrl,
		Port:    appCfg.Port,
		Version: appCfg.Version,
	}, logger).WithFeedCache(feedCache, appCfg.FeedCacheTTL)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", appCfg.Port)
		logger.Info("Endpoint available", "name", "feed", "url", fmt.Sprintf("http://localhost:%s/feeds/events", appCfg.Port))
		logger.Info("Endpoint available", "name", "health", "url", fmt.Sprintf("http://localhost:%s/health", appCfg.Port))
		if appCfg.APIAccessKey == "" {
			logger.Warn("API_ACCESS_KEY not set, management API is unauthenticated")
		}
		logger.Info("Next scheduled run", "at", tasks.FormatNextRun(scheduler.NextRun()))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case serveErr = <-serverErrChan:
		logger.Error("Server error", "error", serveErr)
	}

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	} else {
		logger.Info("HTTP server stopped")
	}

	// Scheduler and dispatcher are stopped via defer
	return serveErr
}

type onceRunner interface {
	RunNow(ctx context.Context, taskType tasks.TaskType, cb tasks.Callbacks) (tracker.RunSummary, error)
}

func runOnce(ctx context.Context, runner onceRunner, out io.Writer, logger *slog.Logger) error {
	summary, err := runner.RunNow(ctx, tasks.TaskTypeCLIRun, tasks.Callbacks{
		Status: func(message string) { fmt.Fprintln(out, message) },
		Progress: func(profile string, follows, unfollows int) {
			fmt.Fprintf(out, "  %s: %d new follows, %d unfollows\n", profile, follows, unfollows)
		},
	})

	// Totals of the profiles that succeeded are printed even when the run failed
	if summary.RunID != "" {
		printSummary(out, summary)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	logger.Info("Run complete", "run_id", summary.RunID, "duration", summary.Duration())
	return nil
}

func printSummary(out io.Writer, summary tracker.RunSummary) {
	fmt.Fprintf(out, "\nProfiles processed: %d\n", summary.ProfilesProcessed)
	fmt.Fprintf(out, "New follows:        %d\n", summary.FollowCount())
	fmt.Fprintf(out, "New unfollows:      %d\n", summary.UnfollowCount())
	for _, f := range summary.Failures {
		fmt.Fprintf(out, "Failed:             %s (%s)\n", f.Profile, f.Error)
	}
}

func newNotifier(appCfg *cfg.Cfg, manager *settings.Manager, logger *slog.Logger) tasks.Notifier {
	logNotifier := notify.NewLogNotifier(logger)
	if !appCfg.MailEnabled() {
		return logNotifier
	}

	sender := &notify.SMTPSender{
		Host:     appCfg.SMTPHost,
		Port:     appCfg.SMTPPort,
		User:     appCfg.SMTPUser,
		Password: appCfg.SMTPPassword,
		Timeout:  appCfg.HTTPTimeout,
	}
	mail := notify.NewMailNotifier(sender, appCfg.SMTPFrom, func() notify.Options {
		s := manager.Get()
		return notify.Options{
			Enabled:         s.Notification.Enabled,
			Recipients:      s.Notification.Recipients,
			Subject:         s.Notification.Subject,
			SpreadsheetLink: s.SpreadsheetLink,
		}
	}, logger)

	return notify.Multi{logNotifier, mail}
}
