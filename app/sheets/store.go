package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lysyi3m/follow-comb/app/retry"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

var ErrProfileNotFound = errors.New("profile not found")

// Store owns all persisted tracker state. Every backend call goes through
// the retry policy; nothing is cached between calls since the spreadsheet
// may be edited by hand at any time.
type Store struct {
	backend Backend
	tables  Tables
	policy  retry.Policy
	logger  *slog.Logger
}

func NewStore(backend Backend, tables Tables, policy retry.Policy, logger *slog.Logger) *Store {
	s := &Store{
		backend: backend,
		tables:  tables.WithDefaults(),
		logger:  logger,
	}
	s.policy = policy.
		WithRetryable(isRetryable).
		WithOnRetry(func(attempt int, err error) {
			logger.Warn("Spreadsheet request failed, retrying",
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"delay", policy.Delay.String(),
				"error", err)
		})
	return s
}

func (s *Store) Tables() Tables {
	return s.tables
}

// EnsureSchema creates missing tables with their header rows.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, t := range []struct {
		name   string
		header []string
	}{
		{s.tables.Profiles, ProfilesHeader},
		{s.tables.Overall, OverallHeader},
		{s.tables.Follows, FollowsHeader},
		{s.tables.Unfollows, UnfollowsHeader},
	} {
		err := s.call(ctx, func(ctx context.Context) error {
			return s.backend.EnsureTable(ctx, t.name, t.header)
		})
		if err != nil {
			return fmt.Errorf("failed to ensure table %q: %w", t.name, err)
		}
	}
	return nil
}

// ListProfiles returns profiles in table order. Rows without a usable
// profile URL or handle are skipped.
func (s *Store) ListProfiles(ctx context.Context) ([]tracker.Profile, error) {
	rows, err := s.read(ctx, s.tables.Profiles, ProfilesHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var profiles []tracker.Profile
	for i, row := range rows {
		_, name := DecodeCell(cell(row, 0))
		link, label := DecodeCell(cell(row, 1))
		if link == "" {
			link = label
		}

		handle := tracker.FollowerKey(link)
		if handle == "" {
			continue
		}

		profiles = append(profiles, tracker.Profile{
			Name:             name,
			URL:              link,
			Handle:           handle,
			InitiallyScraped: strings.EqualFold(cell(row, 2), scrapedYes),
			Row:              i + 2,
		})
	}

	return profiles, nil
}

// FindProfile resolves a profile URL, handle or display name.
func (s *Store) FindProfile(ctx context.Context, identifier string) (tracker.Profile, bool, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return tracker.Profile{}, false, err
	}

	if key := tracker.FollowerKey(identifier); key != "" {
		for _, p := range profiles {
			if p.Handle == key {
				return p, true, nil
			}
		}
	}

	if name := tracker.NameKey(identifier); name != "" {
		for _, p := range profiles {
			if tracker.NameKey(p.Name) == name {
				return p, true, nil
			}
		}
	}

	return tracker.Profile{}, false, nil
}

func (s *Store) ProfileExists(ctx context.Context, identifier string) (bool, error) {
	key := tracker.FollowerKey(identifier)
	if key == "" {
		return false, nil
	}

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(profiles, func(p tracker.Profile) bool {
		return p.Handle == key
	}), nil
}

// AddProfile appends a profile that has not been scraped yet. It returns
// false when the identifier is empty or the profile is already tracked.
func (s *Store) AddProfile(ctx context.Context, name, identifier string) (bool, error) {
	if tracker.FollowerKey(identifier) == "" {
		return false, nil
	}

	exists, err := s.ProfileExists(ctx, identifier)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	row := []string{EncodeCell("", strings.TrimSpace(name)), tracker.CanonicalProfileURL(identifier), scrapedNo}
	if err := s.append(ctx, s.tables.Profiles, [][]string{row}); err != nil {
		return false, fmt.Errorf("failed to add profile: %w", err)
	}

	s.logger.Info("Profile added", "profile", tracker.FollowerKey(identifier), "name", name)
	return true, nil
}

// MarkInitiallyScraped flips the flag of the profile with the given handle.
// The row is looked up again so manual edits since the last read are honoured.
func (s *Store) MarkInitiallyScraped(ctx context.Context, handle string) error {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(profiles, func(p tracker.Profile) bool {
		return p.Handle == handle
	})
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, handle)
	}

	row := profiles[idx].Row
	err = s.call(ctx, func(ctx context.Context) error {
		return s.backend.UpdateCell(ctx, s.tables.Profiles, row, 3, scrapedYes)
	})
	if err != nil {
		return fmt.Errorf("failed to mark profile as scraped: %w", err)
	}
	return nil
}

// RemoveProfileAndCascade removes a profile and every Overall, follow and
// unfollow row it is the follower of. Removing the profile row must succeed;
// the related rows are cleaned up on a best-effort basis.
func (s *Store) RemoveProfileAndCascade(ctx context.Context, identifier string) (bool, error) {
	profile, ok, err := s.FindProfile(ctx, identifier)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := s.RemoveRows(ctx, s.tables.Profiles, []int{profile.Row}); err != nil {
		return false, fmt.Errorf("failed to remove profile: %w", err)
	}

	for _, t := range []struct {
		name   string
		header []string
	}{
		{s.tables.Overall, OverallHeader},
		{s.tables.Follows, FollowsHeader},
		{s.tables.Unfollows, UnfollowsHeader},
	} {
		removed, err := s.removeFollowerRows(ctx, t.name, t.header, profile.Handle)
		if err != nil {
			s.logger.Error("Failed to remove related rows", "table", t.name, "profile", profile.Handle, "error", err)
			continue
		}
		s.logger.Debug("Removed related rows", "table", t.name, "profile", profile.Handle, "rows", removed)
	}

	s.logger.Info("Profile removed", "profile", profile.Handle, "name", profile.Name)
	return true, nil
}

func (s *Store) removeFollowerRows(ctx context.Context, table string, header []string, handle string) (int, error) {
	rows, err := s.read(ctx, table, header)
	if err != nil {
		return 0, err
	}

	var matches []int
	for i, row := range rows {
		followerURL, _ := DecodeCell(cell(row, 1))
		if followerURL != "" && tracker.FollowerKey(followerURL) == handle {
			matches = append(matches, i+2)
		}
	}

	if err := s.RemoveRows(ctx, table, matches); err != nil {
		return 0, err
	}
	return len(matches), nil
}

// OverallSnapshot reads the Overall table together with its key index.
func (s *Store) OverallSnapshot(ctx context.Context) (tracker.Snapshot, error) {
	rows, err := s.read(ctx, s.tables.Overall, OverallHeader)
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("failed to read overall table: %w", err)
	}

	var records []tracker.OverallRecord
	for i, row := range rows {
		companyURL, companyName := DecodeCell(cell(row, 0))
		followerURL, followerName := DecodeCell(cell(row, 1))
		if companyName == "" && companyURL == "" && followerName == "" && followerURL == "" {
			continue
		}

		records = append(records, tracker.OverallRecord{
			CompanyName:       companyName,
			CompanyURL:        companyURL,
			FollowerName:      followerName,
			FollowerURL:       followerURL,
			InitialScrapeDate: cell(row, 2),
			DateFollowed:      cell(row, 3),
			Row:               i + 2,
		})
	}

	return tracker.NewSnapshot(records), nil
}

func (s *Store) AppendOverall(ctx context.Context, records []tracker.OverallRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			EncodeCell(r.CompanyURL, r.CompanyName),
			EncodeCell(r.FollowerURL, r.FollowerName),
			r.InitialScrapeDate,
			r.DateFollowed,
		}
	}

	if err := s.append(ctx, s.tables.Overall, rows); err != nil {
		return fmt.Errorf("failed to append overall rows: %w", err)
	}
	return nil
}

func (s *Store) AppendFollowEvents(ctx context.Context, events []tracker.FollowEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{
			EncodeCell(e.CompanyURL, e.CompanyName),
			EncodeCell(e.FollowerURL, e.FollowerName),
			e.DateFollowed,
		}
	}

	if err := s.append(ctx, s.tables.Follows, rows); err != nil {
		return fmt.Errorf("failed to append follow events: %w", err)
	}
	return nil
}

func (s *Store) AppendUnfollowEvents(ctx context.Context, events []tracker.UnfollowEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{
			EncodeCell(e.CompanyURL, e.CompanyName),
			EncodeCell(e.FollowerURL, e.FollowerName),
			e.InitialScrapeDate,
			e.DateFollowed,
			e.UnfollowedDate,
		}
	}

	if err := s.append(ctx, s.tables.Unfollows, rows); err != nil {
		return fmt.Errorf("failed to append unfollow events: %w", err)
	}
	return nil
}

func (s *Store) ListFollowEvents(ctx context.Context) ([]tracker.FollowEvent, error) {
	rows, err := s.read(ctx, s.tables.Follows, FollowsHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to read follow events: %w", err)
	}

	var events []tracker.FollowEvent
	for _, row := range rows {
		companyURL, companyName := DecodeCell(cell(row, 0))
		followerURL, followerName := DecodeCell(cell(row, 1))
		if companyName == "" && followerName == "" {
			continue
		}
		events = append(events, tracker.FollowEvent{
			CompanyName:  companyName,
			CompanyURL:   companyURL,
			FollowerName: followerName,
			FollowerURL:  followerURL,
			DateFollowed: tracker.SerialToDate(cell(row, 2)),
		})
	}
	return events, nil
}

func (s *Store) ListUnfollowEvents(ctx context.Context) ([]tracker.UnfollowEvent, error) {
	rows, err := s.read(ctx, s.tables.Unfollows, UnfollowsHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to read unfollow events: %w", err)
	}

	var events []tracker.UnfollowEvent
	for _, row := range rows {
		companyURL, companyName := DecodeCell(cell(row, 0))
		followerURL, followerName := DecodeCell(cell(row, 1))
		if companyName == "" && followerName == "" {
			continue
		}
		events = append(events, tracker.UnfollowEvent{
			CompanyName:       companyName,
			CompanyURL:        companyURL,
			FollowerName:      followerName,
			FollowerURL:       followerURL,
			InitialScrapeDate: tracker.SerialToDate(cell(row, 2)),
			DateFollowed:      tracker.SerialToDate(cell(row, 3)),
			UnfollowedDate:    tracker.SerialToDate(cell(row, 4)),
		})
	}
	return events, nil
}

func (s *Store) RemoveOverallRows(ctx context.Context, rows []int) error {
	return s.RemoveRows(ctx, s.tables.Overall, rows)
}

// RemoveRows deletes 1-based data rows in one batched call. Duplicates,
// the header row and invalid numbers are ignored.
func (s *Store) RemoveRows(ctx context.Context, table string, rows []int) error {
	var valid []int
	for _, row := range rows {
		if row > 1 {
			valid = append(valid, row)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	slices.Sort(valid)
	valid = slices.Compact(valid)
	slices.Reverse(valid)

	err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.DeleteRows(ctx, table, valid)
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d rows from %q: %w", len(valid), table, err)
	}
	return nil
}

// read returns the data rows of a table, or nothing when its header row does
// not start with the expected columns.
func (s *Store) read(ctx context.Context, table string, header []string) ([][]string, error) {
	var rows [][]string
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.backend.ReadRows(ctx, table)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}
	if !headerMatches(rows[0], header) {
		s.logger.Warn("Unexpected header row, treating table as empty", "table", table, "header", rows[0], "expected", header)
		return nil, nil
	}
	return rows[1:], nil
}

func (s *Store) append(ctx context.Context, table string, rows [][]string) error {
	return s.call(ctx, func(ctx context.Context) error {
		return s.backend.AppendRows(ctx, table, rows)
	})
}

func (s *Store) call(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.policy, fn)
}

func isRetryable(err error) bool {
	return !errors.Is(err, ErrPermanent) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
