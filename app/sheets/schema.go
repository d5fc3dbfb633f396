package sheets

import (
	"strings"
)

const (
	scrapedYes = "Yes"
	scrapedNo  = "No"
)

var (
	ProfilesHeader  = []string{"Name", "LinkedIn Profile", "Initially Scraped"}
	OverallHeader   = []string{"Company Name", "Follower Name", "Initial Scrape Date", "Date Followed"}
	FollowsHeader   = []string{"Company Name", "Follower Name", "Date Followed"}
	UnfollowsHeader = []string{"Company Name", "Follower Name", "Initial Scrape Date", "Date Followed", "Unfollowed Date"}
)

// Tables names the four worksheets of the tracker spreadsheet.
type Tables struct {
	Profiles  string `yaml:"profiles" json:"profiles"`
	Overall   string `yaml:"overall" json:"overall"`
	Follows   string `yaml:"follows" json:"follows"`
	Unfollows string `yaml:"unfollows" json:"unfollows"`
}

func DefaultTables() Tables {
	return Tables{
		Profiles:  "Profiles",
		Overall:   "Overall List of Currently Followed Companies",
		Follows:   "New Follows",
		Unfollows: "New Unfollows",
	}
}

// WithDefaults fills blank names from DefaultTables.
func (t Tables) WithDefaults() Tables {
	d := DefaultTables()
	if strings.TrimSpace(t.Profiles) == "" {
		t.Profiles = d.Profiles
	}
	if strings.TrimSpace(t.Overall) == "" {
		t.Overall = d.Overall
	}
	if strings.TrimSpace(t.Follows) == "" {
		t.Follows = d.Follows
	}
	if strings.TrimSpace(t.Unfollows) == "" {
		t.Unfollows = d.Unfollows
	}
	return t
}

// headerMatches accepts a header row that starts with the expected columns.
// Extra trailing columns added by hand are tolerated.
func headerMatches(row, expected []string) bool {
	if len(row) < len(expected) {
		return false
	}
	for i, name := range expected {
		if strings.TrimSpace(row[i]) != name {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
