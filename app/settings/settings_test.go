package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/follow-comb/app/sheets"
	"github.com/lysyi3m/follow-comb/app/tasks"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseKeepsDefaultsForAbsentKeys(t *testing.T) {
	s, err := Parse([]byte(`
tables:
  follows: Follows 2026
notification:
  enabled: true
  recipients: [team@example.com]
`))
	require.NoError(t, err)

	assert.Equal(t, "Follows 2026", s.Tables.Follows)
	assert.Equal(t, sheets.DefaultTables().Profiles, s.Tables.Profiles)
	assert.Equal(t, "Weekly Follow Summary", s.Notification.Subject)
	assert.Equal(t, 100, s.Feed.MaxItems)

	ws, err := s.WeeklySchedule()
	require.NoError(t, err)
	assert.Equal(t, tasks.DefaultSchedule(), ws)
}

func TestParseSchedule(t *testing.T) {
	s, err := Parse([]byte(`
schedule:
  days: [friday, Mon]
  hour: 17
  minute: 5
`))
	require.NoError(t, err)

	ws, err := s.WeeklySchedule()
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, ws.Days)
	assert.Equal(t, "Mon, Fri at 17:05", ws.String())
}

func TestParseFeedFilters(t *testing.T) {
	s, err := Parse([]byte(`
feed:
  max_items: 20
  filters:
    - field: kind
      excludes: [unfollow]
`))
	require.NoError(t, err)

	assert.Equal(t, 20, s.Feed.MaxItems)
	require.Len(t, s.Feed.Filters, 1)
	assert.Equal(t, "kind", s.Feed.Filters[0].Field)
	assert.Equal(t, "Company follows", s.Feed.Title)
}

func TestParseDisabledSchedule(t *testing.T) {
	s, err := Parse([]byte("schedule:\n  enabled: false\n"))
	require.NoError(t, err)

	ws, err := s.WeeklySchedule()
	require.NoError(t, err)
	assert.Empty(t, ws.Days)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad day", "schedule:\n  days: [Someday]\n"},
		{"bad hour", "schedule:\n  hour: 24\n"},
		{"bad minute", "schedule:\n  minute: -1\n"},
		{"no recipients", "notification:\n  enabled: true\n"},
		{"bad recipient", "notification:\n  recipients: [nobody]\n"},
		{"negative feed size", "feed:\n  max_items: -1\n"},
		{"unknown filter field", "feed:\n  filters:\n    - field: content\n      includes: [x]\n"},
		{"duplicate tables", "tables:\n  follows: Profiles\n"},
		{"malformed", "schedule: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestManagerLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, m.Load())
	assert.Equal(t, Default(), m.Get())
}

func TestManagerLoadInvalidFile(t *testing.T) {
	m := NewManager(writeFile(t, "schedule:\n  hour: 99\n"))
	err := m.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings.yml")
}

func TestManagerUpdateSchedulePersists(t *testing.T) {
	path := writeFile(t, "spreadsheet_link: https://docs.google.com/spreadsheets/d/abc\n")
	m := NewManager(path)
	require.NoError(t, m.Load())

	ws := tasks.WeeklySchedule{Days: []time.Weekday{time.Wednesday}, Hour: 8, Minute: 30}
	require.NoError(t, m.UpdateSchedule(ws))

	reloaded := NewManager(path)
	require.NoError(t, reloaded.Load())
	s := reloaded.Get()
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc", s.SpreadsheetLink)
	got, err := s.WeeklySchedule()
	require.NoError(t, err)
	assert.Equal(t, ws, got)

	assert.Error(t, m.UpdateSchedule(tasks.WeeklySchedule{Hour: 30}))
	assert.Equal(t, 8, m.Get().Schedule.Hour)
}

func TestManagerUpdateScheduleDisable(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "settings.yml"))
	require.NoError(t, m.Load())

	require.NoError(t, m.UpdateSchedule(tasks.WeeklySchedule{Hour: 9}))

	s := m.Get()
	assert.False(t, s.Schedule.Enabled)
	assert.Equal(t, []string{"Monday"}, s.Schedule.Days)
	ws, err := s.WeeklySchedule()
	require.NoError(t, err)
	assert.Empty(t, ws.Days)
}

func TestManagerGetReturnsCopy(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "settings.yml"))
	s := m.Get()
	s.Schedule.Days[0] = "Sunday"
	assert.Equal(t, "Monday", m.Get().Schedule.Days[0])
}
