package feed

import (
	"time"
)

const (
	KindFollow   = "follow"
	KindUnfollow = "unfollow"
)

// Channel describes the generated feed itself.
type Channel struct {
	Title   string
	Link    string // Usually the tracking spreadsheet
	SelfURL string
	Version string
}

// Item is one follow or unfollow event rendered as a feed entry.
type Item struct {
	GUID        string
	Kind        string
	Title       string
	Link        string
	Description string
	Company     string
	Follower    string
	PublishedAt time.Time // Zero when the event date could not be parsed
}

// Filter drops items by case-insensitive substring match on one field.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
