package cfg

import (
	"time"
)

type Cfg struct {
	// Directory API configuration
	RapidAPIKey     string
	RapidAPIHost    string
	RapidAPIBaseURL string
	RetryAttempts   int
	RetryDelay      time.Duration
	HTTPTimeout     time.Duration

	// Spreadsheet configuration
	SpreadsheetID      string
	CredentialsFile    string
	StoreRetryAttempts int
	StoreRetryDelay    time.Duration
	SettingsFile       string

	// Application configuration
	Port         string
	BaseUrl      string
	APIAccessKey string
	Once         bool

	// Run lock
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	FeedCacheTTL  time.Duration

	// Summary mail
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// Application metadata
	UserAgent string
	Timezone  string
	Location  *time.Location // Parsed Timezone, UTC when invalid
	Debug     bool
	Version   string
}

// Now is the current time in the configured timezone. Dates written to the
// spreadsheet are taken from it.
func (c *Cfg) Now() time.Time {
	return time.Now().In(c.Location)
}

func (c *Cfg) MailEnabled() bool {
	return c.SMTPHost != ""
}
