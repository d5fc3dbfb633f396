package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

func sampleEvents() ([]tracker.FollowEvent, []tracker.UnfollowEvent) {
	follows := []tracker.FollowEvent{
		{CompanyName: "Acme", CompanyURL: "https://www.linkedin.com/company/acme/", FollowerName: "Ann", FollowerURL: "https://www.linkedin.com/in/ann", DateFollowed: "2026-10-05"},
		{CompanyName: "Initech", CompanyURL: "https://www.linkedin.com/company/initech/", FollowerName: "Ann", FollowerURL: "https://www.linkedin.com/in/ann", DateFollowed: "2026-10-12"},
	}
	unfollows := []tracker.UnfollowEvent{
		{CompanyName: "Globex <Corp>", FollowerName: "Bob", FollowerURL: "https://www.linkedin.com/in/bob", UnfollowedDate: "2026-10-12"},
	}
	return follows, unfollows
}

func TestFromEventsOrdersNewestFirst(t *testing.T) {
	follows, unfollows := sampleEvents()
	items := FromEvents(follows, unfollows)

	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}

	// Same date: the later table row comes first.
	if items[0].Kind != KindUnfollow || items[1].Company != "Initech" || items[2].Company != "Acme" {
		t.Errorf("Unexpected order: %q, %q, %q", items[0].Title, items[1].Title, items[2].Title)
	}

	if items[1].Title != "Ann followed Initech" {
		t.Errorf("Expected title 'Ann followed Initech', got '%s'", items[1].Title)
	}
	if items[1].GUID != "follow:initech:ann:2026-10-12" {
		t.Errorf("Unexpected GUID '%s'", items[1].GUID)
	}
	if !items[2].PublishedAt.Equal(time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected publish date %s", items[2].PublishedAt)
	}
}

func TestFromEventsWithUnparseableDate(t *testing.T) {
	items := FromEvents([]tracker.FollowEvent{{CompanyName: "Acme", DateFollowed: "last week"}}, nil)

	if !items[0].PublishedAt.IsZero() {
		t.Error("Expected zero publish date for unparseable date")
	}
	if items[0].Title != "Unknown followed Acme" {
		t.Errorf("Unexpected title '%s'", items[0].Title)
	}
}

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator(Channel{
		Title:   "Company follows",
		Link:    "https://docs.google.com/spreadsheets/d/abc",
		SelfURL: "https://follows.example.com/feeds/events",
		Version: "1.2.3",
	})

	follows, unfollows := sampleEvents()
	rss, err := generator.Run(FromEvents(follows, unfollows))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	checks := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<atom:link href="https://follows.example.com/feeds/events" rel="self" type="application/rss+xml" />`,
		"<lastBuildDate>Mon, 12 Oct 2026 00:00:00 +0000</lastBuildDate>",
		"<generator>Follow-Comb/1.2.3</generator>",
		"<title>Bob unfollowed Globex &lt;Corp&gt;</title>",
		"<link>https://www.linkedin.com/company/acme/</link>",
		`<guid isPermaLink="false">follow:acme:ann:2026-10-05</guid>`,
		"<category>unfollow</category>",
	}
	for _, want := range checks {
		if !strings.Contains(rss, want) {
			t.Errorf("RSS should contain %s", want)
		}
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS does not parse: %v", err)
	}
	if parsed.Title != "Company follows" {
		t.Errorf("Expected parsed title 'Company follows', got '%s'", parsed.Title)
	}
	if len(parsed.Items) != 3 {
		t.Fatalf("Expected 3 parsed items, got %d", len(parsed.Items))
	}
	if parsed.Items[0].Title != "Bob unfollowed Globex <Corp>" {
		t.Errorf("Unexpected first item title '%s'", parsed.Items[0].Title)
	}
	if parsed.Items[2].PublishedParsed == nil || parsed.Items[2].PublishedParsed.Day() != 5 {
		t.Error("Expected parsed publish date on the oldest item")
	}
}

func TestGenerateWithEmptyItems(t *testing.T) {
	generator := NewGenerator(Channel{Title: "Empty"})
	generator.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	rss, err := generator.Run(nil)
	if err != nil {
		t.Fatalf("Expected no error with empty items, got: %v", err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("Empty RSS should not contain any items")
	}
	if strings.Contains(rss, "atom:link href") {
		t.Error("Empty RSS without a self URL should not contain atom:link")
	}
	if !strings.Contains(rss, "<lastBuildDate>Thu, 15 Oct 2026 08:00:00 +0000</lastBuildDate>") {
		t.Error("Empty RSS should use the current time as lastBuildDate")
	}
	if !strings.Contains(rss, "<generator>Follow-Comb/dev</generator>") {
		t.Error("RSS should default the generator version")
	}
}

func TestFilterer(t *testing.T) {
	follows, unfollows := sampleEvents()
	items := FromEvents(follows, unfollows)
	filterer := NewFilterer()

	tests := []struct {
		name    string
		filters []Filter
		want    int
	}{
		{"no filters", nil, 3},
		{"follower include", []Filter{{Field: "follower", Includes: []string{"ANN"}}}, 2},
		{"kind exclude", []Filter{{Field: "kind", Excludes: []string{"unfollow"}}}, 2},
		{"kind include is exact", []Filter{{Field: "kind", Includes: []string{"Follow"}}}, 2},
		{"combined", []Filter{{Field: "follower", Includes: []string{"ann"}}, {Field: "company", Excludes: []string{"acme"}}}, 1},
		{"unknown field matches nothing", []Filter{{Field: "nope", Includes: []string{"x"}}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filterer.Run(items, tt.filters); len(got) != tt.want {
				t.Errorf("Expected %d items, got %d", tt.want, len(got))
			}
		})
	}
}

func TestValidateFilters(t *testing.T) {
	if err := ValidateFilters([]Filter{{Field: "company"}, {Field: "kind"}}); err != nil {
		t.Errorf("Expected valid filters, got %v", err)
	}
	if err := ValidateFilters([]Filter{{Field: "content"}}); err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestIsURLMethod(t *testing.T) {
	generator := NewGenerator(Channel{})

	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"http://example.com", true},
		{"https://example.com", true},
		{"ftp://example.com", false},
		{"http://", false},
		{"follow:acme:ann:2026-10-05", false},
	}

	for _, test := range tests {
		result := generator.isURL(test.input)
		if result != test.expected {
			t.Errorf("For input '%s', expected %v, got %v", test.input, test.expected, result)
		}
	}
}
