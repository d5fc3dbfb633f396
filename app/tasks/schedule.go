package tasks

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// WeeklySchedule fires at Hour:Minute local time on each of Days.
type WeeklySchedule struct {
	Days   []time.Weekday
	Hour   int
	Minute int
}

func DefaultSchedule() WeeklySchedule {
	return WeeklySchedule{Days: []time.Weekday{time.Monday}, Hour: 9, Minute: 0}
}

func (s WeeklySchedule) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", s.Minute)
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d", d)
		}
	}
	return nil
}

// Next returns the first firing time strictly after now, in now's location.
// It reports false when no days are selected.
func (s WeeklySchedule) Next(now time.Time) (time.Time, bool) {
	if len(s.Days) == 0 {
		return time.Time{}, false
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	if slices.Contains(s.Days, now.Weekday()) && now.Before(at) {
		return at, true
	}
	for d := 1; d <= 7; d++ {
		candidate := at.AddDate(0, 0, d)
		if slices.Contains(s.Days, candidate.Weekday()) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func (s WeeklySchedule) DayNames() []string {
	days := slices.Clone(s.Days)
	slices.Sort(days)
	days = slices.Compact(days)

	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return names
}

func (s WeeklySchedule) String() string {
	if len(s.Days) == 0 {
		return "No schedule"
	}
	return fmt.Sprintf("%s at %02d:%02d", strings.Join(s.DayNames(), ", "), s.Hour, s.Minute)
}

// ParseWeekdays accepts English day names or their three-letter forms, in
// any case.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if len(n) < 3 {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}

		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if n == full || n == full[:3] {
				if !slices.Contains(days, d) {
					days = append(days, d)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
	}

	slices.Sort(days)
	return days, nil
}

// FormatNextRun renders a next run time the way the control API shows it.
func FormatNextRun(next time.Time, ok bool) string {
	if !ok {
		return "No schedule"
	}
	return next.Format("Jan 02, 2006 at 03:04 PM")
}
