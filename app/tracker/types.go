package tracker

import (
	"time"
)

type Profile struct {
	Name             string
	URL              string // Canonical profile URL as stored in the Profiles table
	Handle           string // Normalized handle, the profile identity
	InitiallyScraped bool
	Row              int // 1-based row in the Profiles table, 0 when unknown
}

// DisplayName returns the profile name, falling back to its URL.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}

// Company is one followed company as returned by the directory API.
type Company struct {
	Name string
	URL  string
}

func (c Company) Key() string {
	return CompanyKey(c.URL, c.Name)
}

// OverallRecord is a live "follower currently follows company" row.
type OverallRecord struct {
	CompanyName       string
	CompanyURL        string
	FollowerName      string
	FollowerURL       string
	InitialScrapeDate string // Set only when seeded by the initial scrape
	DateFollowed      string // Set only when detected as a new follow
	Row               int    // 1-based row in the Overall table, 0 for unsaved records
}

func (r OverallRecord) Key() Key {
	return Key{
		Company:  CompanyKey(r.CompanyURL, r.CompanyName),
		Follower: FollowerKey(r.FollowerURL),
	}
}

type FollowEvent struct {
	CompanyName  string `json:"company_name"`
	CompanyURL   string `json:"company_url"`
	FollowerName string `json:"follower_name"`
	FollowerURL  string `json:"follower_url"`
	DateFollowed string `json:"date_followed"`
}

type UnfollowEvent struct {
	CompanyName       string `json:"company_name"`
	CompanyURL        string `json:"company_url"`
	FollowerName      string `json:"follower_name"`
	FollowerURL       string `json:"follower_url"`
	InitialScrapeDate string `json:"initial_scrape_date"`
	DateFollowed      string `json:"date_followed"`
	UnfollowedDate    string `json:"unfollowed_date"`
}

// Key is the snapshot equivalence key of a (company, follower) pair.
type Key struct {
	Company  string
	Follower string
}

// Snapshot is the Overall table as read at the start of a reconciliation.
type Snapshot struct {
	Records []OverallRecord
	Keys    map[Key]struct{}
}

func NewSnapshot(records []OverallRecord) Snapshot {
	keys := make(map[Key]struct{}, len(records))
	for _, r := range records {
		keys[r.Key()] = struct{}{}
	}
	return Snapshot{Records: records, Keys: keys}
}

func (s Snapshot) Contains(k Key) bool {
	_, ok := s.Keys[k]
	return ok
}

// ProfileFailure records a profile that could not be reconciled in a run.
type ProfileFailure struct {
	Profile string `json:"profile"`
	Error   string `json:"error"`
}

// RunSummary is the result of one reconciliation pass over all profiles.
type RunSummary struct {
	RunID             string           `json:"run_id"`
	StartedAt         time.Time        `json:"started_at"`
	FinishedAt        time.Time        `json:"finished_at"`
	ProfilesProcessed int              `json:"profiles_processed"`
	NewFollows        []FollowEvent    `json:"new_follows"`
	NewUnfollows      []UnfollowEvent  `json:"new_unfollows"`
	Failures          []ProfileFailure `json:"failures,omitempty"`
}

func (s RunSummary) FollowCount() int {
	return len(s.NewFollows)
}

func (s RunSummary) UnfollowCount() int {
	return len(s.NewUnfollows)
}

func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
