package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/follow-comb/app/feed"
	"github.com/lysyi3m/follow-comb/app/sheets"
	"github.com/lysyi3m/follow-comb/app/tasks"
)

// Settings holds the runtime-editable part of the configuration. It lives in
// a YAML file next to the service and is rewritten when the schedule changes.
type Settings struct {
	SpreadsheetLink string        `yaml:"spreadsheet_link,omitempty"`
	Tables          sheets.Tables `yaml:"tables"`
	Schedule        Schedule      `yaml:"schedule"`
	Notification    Notification  `yaml:"notification"`
	Feed            Feed          `yaml:"feed"`
}

type Schedule struct {
	Enabled bool     `yaml:"enabled"`
	Days    []string `yaml:"days"`
	Hour    int      `yaml:"hour"`
	Minute  int      `yaml:"minute"`
}

type Notification struct {
	Enabled    bool     `yaml:"enabled"`
	Recipients []string `yaml:"recipients"`
	Subject    string   `yaml:"subject"`
}

type Feed struct {
	Title    string        `yaml:"title"`
	MaxItems int           `yaml:"max_items"`
	Filters  []feed.Filter `yaml:"filters,omitempty"`
}

func Default() Settings {
	return Settings{
		Tables: sheets.DefaultTables(),
		Schedule: Schedule{
			Enabled: true,
			Days:    []string{"Monday"},
			Hour:    9,
		},
		Notification: Notification{
			Subject: "Weekly Follow Summary",
		},
		Feed: Feed{
			Title:    "Company follows",
			MaxItems: 100,
		},
	}
}

// WeeklySchedule converts the schedule section. A disabled schedule has no
// days and never fires.
func (s Settings) WeeklySchedule() (tasks.WeeklySchedule, error) {
	days, err := tasks.ParseWeekdays(s.Schedule.Days)
	if err != nil {
		return tasks.WeeklySchedule{}, err
	}
	if !s.Schedule.Enabled {
		days = nil
	}
	ws := tasks.WeeklySchedule{Days: days, Hour: s.Schedule.Hour, Minute: s.Schedule.Minute}
	if err := ws.Validate(); err != nil {
		return tasks.WeeklySchedule{}, err
	}
	return ws, nil
}

func (s Settings) validate() error {
	if _, err := s.WeeklySchedule(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	if s.Notification.Enabled && len(s.Notification.Recipients) == 0 {
		return fmt.Errorf("notification is enabled but no recipients are configured")
	}
	for _, r := range s.Notification.Recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("invalid recipient address %q", r)
		}
	}

	if s.Feed.MaxItems < 0 {
		return fmt.Errorf("feed max_items must be non-negative, got %d", s.Feed.MaxItems)
	}
	if err := feed.ValidateFilters(s.Feed.Filters); err != nil {
		return fmt.Errorf("invalid feed filters: %w", err)
	}

	names := []string{s.Tables.Profiles, s.Tables.Overall, s.Tables.Follows, s.Tables.Unfollows}
	slices.Sort(names)
	if len(slices.Compact(names)) != 4 {
		return fmt.Errorf("table names must be distinct")
	}
	return nil
}

// Parse decodes YAML over the defaults, so absent keys keep their default
// values.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	s.Tables = s.Tables.WithDefaults()
	if strings.TrimSpace(s.Notification.Subject) == "" {
		s.Notification.Subject = Default().Notification.Subject
	}
	if strings.TrimSpace(s.Feed.Title) == "" {
		s.Feed.Title = Default().Feed.Title
	}

	if err := s.validate(); err != nil {
		return Settings{}, fmt.Errorf("settings validation failed: %w", err)
	}
	return s, nil
}

// Manager guards the settings file. Reads return copies.
type Manager struct {
	path    string
	mu      sync.RWMutex
	current Settings
}

func NewManager(path string) *Manager {
	return &Manager{path: path, current: Default()}
}

// Load reads the file. A missing file leaves the defaults in place.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.mu.Lock()
		m.current = Default()
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings file %s: %w", m.path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", m.path, err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.current
	s.Schedule.Days = slices.Clone(s.Schedule.Days)
	s.Notification.Recipients = slices.Clone(s.Notification.Recipients)
	s.Feed.Filters = slices.Clone(s.Feed.Filters)
	return s
}

// UpdateSchedule stores a new schedule and persists the file.
func (m *Manager) UpdateSchedule(ws tasks.WeeklySchedule) error {
	if err := ws.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	next.Schedule = Schedule{
		Enabled: len(ws.Days) > 0,
		Days:    ws.DayNames(),
		Hour:    ws.Hour,
		Minute:  ws.Minute,
	}
	if !next.Schedule.Enabled {
		next.Schedule.Days = m.current.Schedule.Days
	}

	if err := m.save(next); err != nil {
		return err
	}
	m.current = next
	return nil
}

func (m *Manager) save(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".settings-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
