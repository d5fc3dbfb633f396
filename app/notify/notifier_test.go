package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

type capturingSender struct {
	from  string
	to    []string
	msg   string
	calls int
	err   error
}

func (s *capturingSender) Send(_ context.Context, from string, to []string, msg []byte) error {
	s.calls++
	s.from, s.to, s.msg = from, to, string(msg)
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSummary() tracker.RunSummary {
	return tracker.RunSummary{
		RunID:             "run-1",
		ProfilesProcessed: 2,
		NewFollows: []tracker.FollowEvent{{
			CompanyName:  "Acme <Labs>",
			CompanyURL:   "https://www.linkedin.com/company/acme/",
			FollowerName: "Ann",
			FollowerURL:  "https://www.linkedin.com/in/ann",
			DateFollowed: "2026-10-15",
		}},
		NewUnfollows: []tracker.UnfollowEvent{{
			CompanyName:    "Globex",
			FollowerName:   "Bob",
			UnfollowedDate: "2026-10-15",
		}},
		Failures: []tracker.ProfileFailure{{Profile: "Cy", Error: "directory API unavailable"}},
	}
}

func TestRenderSummary(t *testing.T) {
	html, err := RenderSummary(sampleSummary(), "https://docs.google.com/spreadsheets/d/abc")
	require.NoError(t, err)

	assert.Contains(t, html, "<b>Profiles processed:</b> 2")
	assert.Contains(t, html, "<b>New follows:</b> 1")
	assert.Contains(t, html, "<b>New unfollows:</b> 1")
	assert.Contains(t, html, `<a href="https://docs.google.com/spreadsheets/d/abc">Open tracking spreadsheet</a>`)
	assert.Contains(t, html, `<a href="https://www.linkedin.com/company/acme/" style="color:#0A66C2;">Acme &lt;Labs&gt;</a>`)
	assert.Contains(t, html, "Follower: Bob | Unfollowed: 2026-10-15")
	assert.Contains(t, html, "<li>Cy: directory API unavailable</li>")
}

func TestRenderSummaryWithoutEvents(t *testing.T) {
	html, err := RenderSummary(tracker.RunSummary{ProfilesProcessed: 1}, "")
	require.NoError(t, err)

	assert.NotContains(t, html, "<h3>")
	assert.NotContains(t, html, "spreadsheet</a>")
}

func TestMailNotifierSends(t *testing.T) {
	sender := &capturingSender{}
	n := NewMailNotifier(sender, "tracker@example.com", func() Options {
		return Options{Enabled: true, Recipients: []string{"a@example.com", "b@example.com"}, Subject: "Weekly Follow Summary"}
	}, discardLogger())
	n.now = func() time.Time { return time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Notify(context.Background(), sampleSummary()))

	assert.Equal(t, "tracker@example.com", sender.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, sender.to)
	assert.Contains(t, sender.msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, sender.msg, "Subject: Weekly Follow Summary\r\n")
	assert.Contains(t, sender.msg, "Date: Thu, 15 Oct 2026 09:00:00 +0000\r\n")
	assert.Contains(t, sender.msg, "Content-Type: text/html")
	assert.Contains(t, sender.msg, "\r\n\r\n<h2>")
	assert.NotContains(t, strings.ReplaceAll(sender.msg, "\r\n", ""), "\n")
}

func TestMailNotifierDisabled(t *testing.T) {
	sender := &capturingSender{}
	n := NewMailNotifier(sender, "tracker@example.com", func() Options {
		return Options{Enabled: false, Recipients: []string{"a@example.com"}}
	}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), sampleSummary()))
	assert.Zero(t, sender.calls)
}

func TestMailNotifierSendFailure(t *testing.T) {
	sender := &capturingSender{err: errors.New("connection refused")}
	n := NewMailNotifier(sender, "tracker@example.com", func() Options {
		return Options{Enabled: true, Recipients: []string{"a@example.com"}}
	}, discardLogger())

	err := n.Notify(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMultiJoinsErrors(t *testing.T) {
	failing := NewMailNotifier(&capturingSender{err: errors.New("smtp down")}, "x@example.com", func() Options {
		return Options{Enabled: true, Recipients: []string{"a@example.com"}}
	}, discardLogger())

	m := Multi{NewLogNotifier(discardLogger()), failing}
	err := m.Notify(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}
