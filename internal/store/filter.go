package store

import (
	"sort"
	"strings"
	"time"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// Filters narrows a schedule listing. Zero value means unfiltered.
type Filters struct {
	Query    string
	Area     string
	Feeder   string
	Division string
	Date     string // yyyy-mm-dd, matched against the event's start day
}

func (f Filters) empty() bool {
	return f.Query == "" && f.Area == "" && f.Feeder == "" && f.Division == "" && f.Date == ""
}

const unfilteredLimit = 200

// FilterItems applies substring filters and sorts by start. An
// unfiltered listing collapses to upcoming events (start within the
// last hour or later) capped at 200 rows, so the default view stays
// readable as history accumulates.
func FilterItems(items []event.Event, f Filters, now time.Time, loc *time.Location) []event.Event {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	area := strings.ToLower(strings.TrimSpace(f.Area))
	feeder := strings.ToLower(strings.TrimSpace(f.Feeder))
	division := strings.ToLower(strings.TrimSpace(f.Division))

	var dayStart, dayEnd time.Time
	if f.Date != "" {
		if loc == nil {
			loc = time.UTC
		}
		if day, err := time.ParseInLocation("2006-01-02", f.Date, loc); err == nil {
			dayStart = day
			dayEnd = day.Add(24*time.Hour - time.Second)
		}
	}

	filtered := make([]event.Event, 0, len(items))
	for _, it := range items {
		hay := strings.ToLower(it.Area + " " + it.Feeder + " " + it.Reason)
		if q != "" && !strings.Contains(hay, q) {
			continue
		}
		if area != "" && !strings.Contains(strings.ToLower(it.Area), area) {
			continue
		}
		if feeder != "" && !strings.Contains(strings.ToLower(it.Feeder), feeder) {
			continue
		}
		if division != "" && !strings.Contains(strings.ToLower(it.Division), division) {
			continue
		}
		if !dayStart.IsZero() && it.Start != "" {
			t, err := time.Parse(time.RFC3339, it.Start)
			if err == nil && (t.Before(dayStart) || t.After(dayEnd)) {
				continue
			}
		}
		filtered = append(filtered, it)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Start < filtered[j].Start
	})

	if f.empty() {
		cutoff := now.Add(-time.Hour)
		upcoming := make([]event.Event, 0, len(filtered))
		for _, it := range filtered {
			if it.Start == "" {
				upcoming = append(upcoming, it)
				continue
			}
			t, err := time.Parse(time.RFC3339, it.Start)
			if err != nil || !t.Before(cutoff) {
				upcoming = append(upcoming, it)
			}
		}
		if len(upcoming) > 0 {
			filtered = upcoming
		}
		if len(filtered) > unfilteredLimit {
			filtered = filtered[:unfilteredLimit]
		}
	}
	return filtered
}
