package artworks

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// History sort orders.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortTitleAsc  = "titleAsc"
	SortTitleDesc = "titleDesc"
)

// History date ranges.
const (
	RangeLast7Days  = "last7days"
	RangeLast30Days = "last30days"
	RangeThisYear   = "thisYear"
)

// Filter narrows and orders a user's history.
type Filter struct {
	Tags      []string
	DateRange string
	SortBy    string
}

// ParseFilter validates history query values. Empty values mean no filtering and newest first.
func ParseFilter(tags, dateRange, sortBy string) (Filter, error) {
	f := Filter{DateRange: strings.TrimSpace(dateRange), SortBy: strings.TrimSpace(sortBy)}
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.Tags = append(f.Tags, tag)
		}
	}
	switch f.DateRange {
	case "", RangeLast7Days, RangeLast30Days, RangeThisYear:
	default:
		return Filter{}, fmt.Errorf("%w: unknown dateRange %q", ErrInvalidInput, f.DateRange)
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortNewest
	case SortNewest, SortOldest, SortTitleAsc, SortTitleDesc:
	default:
		return Filter{}, fmt.Errorf("%w: unknown sortBy %q", ErrInvalidInput, f.SortBy)
	}
	return f, nil
}

// Apply returns the summaries kept by f in f's order. The input slice is not modified.
func (f Filter) Apply(items []Summary, now time.Time) []Summary {
	out := make([]Summary, 0, len(items))
	for _, s := range items {
		if f.keepTags(s) && f.keepDate(s, now) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, f.less(out))
	return out
}

func (f Filter) keepTags(s Summary) bool {
	if len(f.Tags) == 0 {
		return true
	}
	for _, g := range s.Genres {
		for _, tag := range f.Tags {
			if g.ID == tag {
				return true
			}
		}
	}
	return false
}

func (f Filter) keepDate(s Summary, now time.Time) bool {
	switch f.DateRange {
	case RangeLast7Days:
		return !s.CreatedAt.Before(now.AddDate(0, 0, -7))
	case RangeLast30Days:
		return !s.CreatedAt.Before(now.AddDate(0, 0, -30))
	case RangeThisYear:
		return s.CreatedAt.In(now.Location()).Year() == now.Year()
	default:
		return true
	}
}

func (f Filter) less(items []Summary) func(i, j int) bool {
	switch f.SortBy {
	case SortOldest:
		return func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) }
	case SortTitleAsc:
		return func(i, j int) bool { return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title) }
	case SortTitleDesc:
		return func(i, j int) bool { return strings.ToLower(items[i].Title) > strings.ToLower(items[j].Title) }
	default:
		return func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) }
	}
}
