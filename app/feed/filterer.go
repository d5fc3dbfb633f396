package feed

import (
	"fmt"
	"slices"
	"strings"
)

var filterFields = []string{"company", "follower", "kind", "title"}

// ValidateFilters rejects filters on unknown fields.
func ValidateFilters(filters []Filter) error {
	for i, filter := range filters {
		if !slices.Contains(filterFields, filter.Field) {
			return fmt.Errorf("filter %d: unknown field '%s', expected one of %v", i, filter.Field, filterFields)
		}
	}
	return nil
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the items that pass every filter, in their original order.
func (f *Filterer) Run(items []Item, filters []Filter) []Item {
	if len(filters) == 0 {
		return items
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if !f.excluded(item, filters) {
			kept = append(kept, item)
		}
	}

	return kept
}

func (f *Filterer) excluded(item Item, filters []Filter) bool {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(filter.Field, value, exclude) {
				return true
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(filter.Field, value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true
			}
		}
	}

	return false
}

// matchesFilter compares kinds exactly, since "follow" is a substring of
// "unfollow".
func (f *Filterer) matchesFilter(field, value, pattern string) bool {
	if field == "kind" {
		return strings.EqualFold(value, strings.TrimSpace(pattern))
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item Item, field string) string {
	switch field {
	case "company":
		return item.Company
	case "follower":
		return item.Follower
	case "kind":
		return item.Kind
	case "title":
		return item.Title
	default:
		return ""
	}
}
