package feed

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/lysyi3m/follow-comb/app/tracker"
)

// FromEvents turns stored events into feed items, newest first. Events with
// the same date keep their reverse table order, so later rows come first.
func FromEvents(follows []tracker.FollowEvent, unfollows []tracker.UnfollowEvent) []Item {
	type entry struct {
		item Item
		seq  int
	}

	entries := make([]entry, 0, len(follows)+len(unfollows))
	for i, f := range follows {
		entries = append(entries, entry{seq: i, item: Item{
			GUID:        eventGUID(KindFollow, f.CompanyURL, f.CompanyName, f.FollowerURL, f.DateFollowed),
			Kind:        KindFollow,
			Title:       fmt.Sprintf("%s followed %s", displayName(f.FollowerName, f.FollowerURL), displayName(f.CompanyName, f.CompanyURL)),
			Link:        f.CompanyURL,
			Description: describe("Followed on", f.DateFollowed, f.FollowerURL),
			Company:     f.CompanyName,
			Follower:    f.FollowerName,
			PublishedAt: parseDate(f.DateFollowed),
		}})
	}
	for i, u := range unfollows {
		entries = append(entries, entry{seq: len(follows) + i, item: Item{
			GUID:        eventGUID(KindUnfollow, u.CompanyURL, u.CompanyName, u.FollowerURL, u.UnfollowedDate),
			Kind:        KindUnfollow,
			Title:       fmt.Sprintf("%s unfollowed %s", displayName(u.FollowerName, u.FollowerURL), displayName(u.CompanyName, u.CompanyURL)),
			Link:        u.CompanyURL,
			Description: describe("Unfollowed on", u.UnfollowedDate, u.FollowerURL),
			Company:     u.CompanyName,
			Follower:    u.FollowerName,
			PublishedAt: parseDate(u.UnfollowedDate),
		}})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := b.item.PublishedAt.Compare(a.item.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return items
}

func eventGUID(kind, companyURL, companyName, followerURL, date string) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, tracker.CompanyKey(companyURL, companyName), tracker.FollowerKey(followerURL), date)
}

func displayName(name, url string) string {
	return cmp.Or(name, url, "Unknown")
}

func describe(prefix, date, followerURL string) string {
	s := prefix + " " + cmp.Or(date, "an unknown date")
	if followerURL != "" {
		s += " by " + followerURL
	}
	return s
}

func parseDate(s string) time.Time {
	t, err := time.Parse(tracker.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
