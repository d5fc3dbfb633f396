package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/follow-comb/app/linkedin"
	"github.com/lysyi3m/follow-comb/app/tracker"
)

type Fetcher interface {
	FetchFollowedCompanies(ctx context.Context, identifier string) (linkedin.Result, error)
}

type Store interface {
	OverallSnapshot(ctx context.Context) (tracker.Snapshot, error)
	AppendOverall(ctx context.Context, records []tracker.OverallRecord) error
	AppendFollowEvents(ctx context.Context, events []tracker.FollowEvent) error
	AppendUnfollowEvents(ctx context.Context, events []tracker.UnfollowEvent) error
	RemoveOverallRows(ctx context.Context, rows []int) error
	MarkInitiallyScraped(ctx context.Context, handle string) error
}

// Delta is what one reconciliation changed for a profile.
type Delta struct {
	Initial      bool // Initial scrape; Seeded holds the number of records written
	Seeded       int
	Partial      bool // The fetch stopped early, unfollows were not evaluated
	NewFollows   []tracker.FollowEvent
	NewUnfollows []tracker.UnfollowEvent
}

type Engine struct {
	fetcher Fetcher
	store   Store
	now     func() time.Time
	logger  *slog.Logger
}

func NewEngine(fetcher Fetcher, store Store, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the source of "today".
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Reconcile brings the Overall table in line with what the profile follows
// right now. Nothing is written when the fetch fails.
func (e *Engine) Reconcile(ctx context.Context, profile tracker.Profile) (Delta, error) {
	result, err := e.fetcher.FetchFollowedCompanies(ctx, profile.URL)
	if err != nil {
		return Delta{}, fmt.Errorf("failed to fetch followed companies of %s: %w", profile.Handle, err)
	}

	snapshot, err := e.store.OverallSnapshot(ctx)
	if err != nil {
		return Delta{}, err
	}

	current := uniqueCompanies(result.Companies)
	if !profile.InitiallyScraped {
		return e.seed(ctx, profile, current, snapshot, result.Partial)
	}
	return e.diff(ctx, profile, current, snapshot, result.Partial)
}

// seed writes every fetched company as pre-existing and flips the profile
// flag. A partial fetch leaves the flag alone so the next pass seeds the rest.
func (e *Engine) seed(ctx context.Context, profile tracker.Profile, current []tracker.Company, snapshot tracker.Snapshot, partial bool) (Delta, error) {
	today := tracker.FormatDate(e.now())
	followerURL := tracker.CanonicalProfileURL(profile.URL)

	var records []tracker.OverallRecord
	for _, c := range current {
		if snapshot.Contains(tracker.Key{Company: c.Key(), Follower: profile.Handle}) {
			continue
		}
		records = append(records, tracker.OverallRecord{
			CompanyName:       c.Name,
			CompanyURL:        c.URL,
			FollowerName:      profile.DisplayName(),
			FollowerURL:       followerURL,
			InitialScrapeDate: today,
		})
	}

	if err := e.store.AppendOverall(ctx, records); err != nil {
		return Delta{}, err
	}

	delta := Delta{Initial: true, Seeded: len(records), Partial: partial}
	if partial {
		e.logger.Warn("Initial scrape incomplete, will seed again next run", "profile", profile.Handle, "seeded", len(records))
		return delta, nil
	}

	if err := e.store.MarkInitiallyScraped(ctx, profile.Handle); err != nil {
		return delta, err
	}

	e.logger.Info("Initial scrape complete", "profile", profile.Handle, "companies", len(records))
	return delta, nil
}

func (e *Engine) diff(ctx context.Context, profile tracker.Profile, current []tracker.Company, snapshot tracker.Snapshot, partial bool) (Delta, error) {
	today := tracker.FormatDate(e.now())
	followerURL := tracker.CanonicalProfileURL(profile.URL)
	delta := Delta{Partial: partial}

	currentKeys := make(map[tracker.Key]struct{}, len(current))
	var additions []tracker.OverallRecord
	for _, c := range current {
		key := tracker.Key{Company: c.Key(), Follower: profile.Handle}
		currentKeys[key] = struct{}{}
		if snapshot.Contains(key) {
			continue
		}

		additions = append(additions, tracker.OverallRecord{
			CompanyName:  c.Name,
			CompanyURL:   c.URL,
			FollowerName: profile.DisplayName(),
			FollowerURL:  followerURL,
			DateFollowed: today,
		})
		delta.NewFollows = append(delta.NewFollows, tracker.FollowEvent{
			CompanyName:  c.Name,
			CompanyURL:   c.URL,
			FollowerName: profile.DisplayName(),
			FollowerURL:  followerURL,
			DateFollowed: today,
		})
	}

	var removals []int
	if partial {
		e.logger.Warn("Partial fetch, skipping unfollow detection", "profile", profile.Handle)
	} else {
		unfollowed := make(map[tracker.Key]struct{})
		for _, r := range snapshot.Records {
			key := r.Key()
			if key.Follower != profile.Handle {
				continue
			}
			if _, ok := currentKeys[key]; ok {
				continue
			}

			removals = append(removals, r.Row)
			if _, seen := unfollowed[key]; seen {
				continue
			}
			unfollowed[key] = struct{}{}

			delta.NewUnfollows = append(delta.NewUnfollows, tracker.UnfollowEvent{
				CompanyName:       r.CompanyName,
				CompanyURL:        r.CompanyURL,
				FollowerName:      r.FollowerName,
				FollowerURL:       r.FollowerURL,
				InitialScrapeDate: tracker.SerialToDate(r.InitialScrapeDate),
				DateFollowed:      tracker.SerialToDate(r.DateFollowed),
				UnfollowedDate:    today,
			})
		}
	}

	// Row numbers come from the snapshot, so the delete goes before any append
	// can shift them.
	if err := e.store.RemoveOverallRows(ctx, removals); err != nil {
		return Delta{}, err
	}
	if err := e.store.AppendOverall(ctx, additions); err != nil {
		return Delta{}, err
	}
	if err := e.store.AppendFollowEvents(ctx, delta.NewFollows); err != nil {
		return Delta{}, err
	}
	if err := e.store.AppendUnfollowEvents(ctx, delta.NewUnfollows); err != nil {
		return Delta{}, err
	}

	e.logger.Info("Profile reconciled",
		"profile", profile.Handle,
		"companies", len(current),
		"new_follows", len(delta.NewFollows),
		"new_unfollows", len(delta.NewUnfollows),
		"partial", partial)
	return delta, nil
}

// uniqueCompanies drops companies without identity and collapses repeats,
// keeping the first occurrence.
func uniqueCompanies(companies []tracker.Company) []tracker.Company {
	seen := make(map[string]struct{}, len(companies))
	out := make([]tracker.Company, 0, len(companies))
	for _, c := range companies {
		key := c.Key()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
