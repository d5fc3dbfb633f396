package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Directory API configuration
	RapidAPIKey     string        `long:"rapidapi-key" env:"RAPIDAPI_KEY" description:"RapidAPI key for the professional network data API (required)" required:"true"`
	RapidAPIHost    string        `long:"rapidapi-host" env:"RAPIDAPI_HOST" default:"professional-network-data.p.rapidapi.com" description:"RapidAPI host header"`
	RapidAPIBaseURL string        `long:"rapidapi-base-url" env:"RAPIDAPI_BASE_URL" default:"https://professional-network-data.p.rapidapi.com" description:"Directory API base URL"`
	RetryAttempts   int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"13" description:"Attempts per directory API request, including the first"`
	RetryDelay      time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"10s" description:"Delay between directory API attempts"`
	HTTPTimeout     time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Timeout of a single directory API request"`

	// Spreadsheet configuration
	SpreadsheetID      string        `long:"spreadsheet-id" env:"SPREADSHEET_ID" description:"Google spreadsheet ID (required)" required:"true"`
	CredentialsFile    string        `long:"credentials-file" env:"GOOGLE_APPLICATION_CREDENTIALS" description:"Service account credentials JSON file"`
	StoreRetryAttempts int           `long:"store-retry-attempts" env:"STORE_RETRY_ATTEMPTS" default:"5" description:"Attempts per spreadsheet request, including the first"`
	StoreRetryDelay    time.Duration `long:"store-retry-delay" env:"STORE_RETRY_DELAY" default:"5s" description:"Delay between spreadsheet attempts"`
	SettingsFile       string        `long:"settings-file" env:"SETTINGS_FILE" default:"./settings.yml" description:"YAML file with tables, schedule and notification settings"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://follows.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Once         bool   `long:"once" description:"Run a single pass, print progress and exit"`

	// Run lock
	RedisAddr     string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for a run lock shared between instances (optional)"`
	RedisPassword string        `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int           `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database"`
	LockTTL       time.Duration `long:"lock-ttl" env:"LOCK_TTL" default:"10m" description:"Run lock expiry, extended while a run is active"`
	FeedCacheTTL  time.Duration `long:"feed-cache-ttl" env:"FEED_CACHE_TTL" default:"5m" description:"How long a rendered feed is served from cache (0 disables)"`

	// Summary mail
	SMTPHost     string `long:"smtp-host" env:"SMTP_HOST" description:"SMTP server for run summaries (optional)"`
	SMTPPort     int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string `long:"smtp-user" env:"SMTP_USER" description:"SMTP user"`
	SMTPPassword string `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	SMTPFrom     string `long:"smtp-from" env:"SMTP_FROM" description:"Sender address of run summaries"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Follow Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for schedules and dates (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command line arguments and environment variables. It returns
// nil without an error when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		RapidAPIKey:        raw.RapidAPIKey,
		RapidAPIHost:       raw.RapidAPIHost,
		RapidAPIBaseURL:    raw.RapidAPIBaseURL,
		RetryAttempts:      raw.RetryAttempts,
		RetryDelay:         raw.RetryDelay,
		HTTPTimeout:        raw.HTTPTimeout,
		SpreadsheetID:      raw.SpreadsheetID,
		CredentialsFile:    raw.CredentialsFile,
		StoreRetryAttempts: raw.StoreRetryAttempts,
		StoreRetryDelay:    raw.StoreRetryDelay,
		SettingsFile:       raw.SettingsFile,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		APIAccessKey:       raw.APIAccessKey,
		Once:               raw.Once,
		RedisAddr:          raw.RedisAddr,
		RedisPassword:      raw.RedisPassword,
		RedisDB:            raw.RedisDB,
		LockTTL:            raw.LockTTL,
		FeedCacheTTL:       raw.FeedCacheTTL,
		SMTPHost:           raw.SMTPHost,
		SMTPPort:           raw.SMTPPort,
		SMTPUser:           raw.SMTPUser,
		SMTPPassword:       raw.SMTPPassword,
		SMTPFrom:           raw.SMTPFrom,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
		Location:           time.UTC,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if loc, err := loadLocation(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using UTC: %v\n", cfg.Timezone, err)
	} else {
		cfg.Location = loc
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.StoreRetryAttempts < 1 {
		return fmt.Errorf("store retry attempts must be at least 1, got %d", c.StoreRetryAttempts)
	}
	if c.RetryDelay < 0 || c.StoreRetryDelay < 0 {
		return errors.New("retry delays must be non-negative")
	}
	if c.FeedCacheTTL < 0 {
		return fmt.Errorf("feed cache TTL must be non-negative, got %s", c.FeedCacheTTL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return errors.New("smtp-from is required when smtp-host is set")
	}
	return nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}
