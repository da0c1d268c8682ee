// Package forecast windows, buckets and ranks the merged event stream
// for reporting.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// Report is the full forecast payload.
type Report struct {
	OK          bool           `json:"ok"`
	GeneratedAt string         `json:"generatedAt"`
	Window      Window         `json:"window"`
	Totals      Totals         `json:"totals"`
	Daily       []DayBucket    `json:"daily"`
	Divisions   []DivisionRank `json:"divisions"`
	Types       []TypeShare    `json:"types"`
	Upcoming    []Entry        `json:"upcoming"`
	Longest     []Entry        `json:"longest"`
}

type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

type Totals struct {
	Count        int     `json:"count"`
	Areas        int     `json:"areas"`
	Divisions    int     `json:"divisions"`
	TotalHours   float64 `json:"totalHours"`
	AverageHours float64 `json:"averageHours"`
	Within24h    int     `json:"within24h"`
	NextStart    string  `json:"nextStart,omitempty"`
}

type DayBucket struct {
	Date          string  `json:"date"`
	Label         string  `json:"label"`
	Count         int     `json:"count"`
	TotalHours    float64 `json:"totalHours"`
	DistinctAreas int     `json:"distinctAreas"`
	FirstStart    string  `json:"firstStart,omitempty"`
	LastEnd       string  `json:"lastEnd,omitempty"`
}

type DivisionRank struct {
	Division      string  `json:"division"`
	Count         int     `json:"count"`
	TotalHours    float64 `json:"totalHours"`
	DistinctAreas int     `json:"distinctAreas"`
}

type TypeShare struct {
	Type  string  `json:"type"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Entry is one ranked event in the upcoming/longest lists.
type Entry struct {
	Area       string  `json:"area"`
	Division   string  `json:"division,omitempty"`
	Feeder     string  `json:"feeder,omitempty"`
	Start      string  `json:"start"`
	End        string  `json:"end,omitempty"`
	Hours      float64 `json:"hours"`
	Type       string  `json:"type,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Engine computes forecasts in a fixed reporting timezone.
type Engine struct {
	loc *time.Location
}

func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

const (
	topN            = 5
	lookbackGrace   = time.Hour
	defaultDuration = time.Hour
	minimumDuration = time.Minute
)

// Forecast keeps events starting no more than one hour before now and
// no later than the window end, then buckets and ranks them. All
// presented durations and shares are rounded to 2 decimals.
func (e *Engine) Forecast(items []event.Event, days int, now time.Time) Report {
	if days < 1 {
		days = 1
	}
	now = now.In(e.loc)
	windowEnd := now.AddDate(0, 0, days)
	window24h := now.Add(24 * time.Hour)

	daily := make(map[string]*dayAcc)
	divisions := make(map[string]*divisionAcc)
	typeCounts := make(map[string]int)
	areas := make(map[string]bool)

	var (
		ranked     []rankedEntry
		totalHours float64
		count      int
		within24h  int
		nextStart  time.Time
	)

	for _, item := range items {
		start, ok := parseStamp(item.Start, e.loc)
		if !ok {
			continue
		}
		if start.Before(now.Add(-lookbackGrace)) || start.After(windowEnd) {
			continue
		}
		end, hasEnd := parseStamp(item.End, e.loc)
		if hasEnd && end.Before(start) {
			end = start
		}
		duration := durationHours(start, end, hasEnd)

		count++
		totalHours += duration
		if item.Area != "" {
			areas[item.Area] = true
		}

		dayKey := start.Format("2006-01-02")
		bucket, ok := daily[dayKey]
		if !ok {
			bucket = &dayAcc{date: dayKey, label: start.Format("Mon 02 Jan"), areas: make(map[string]bool)}
			daily[dayKey] = bucket
		}
		bucket.count++
		bucket.totalHours += duration
		if item.Area != "" {
			bucket.areas[item.Area] = true
		}
		if bucket.firstStart.IsZero() || start.Before(bucket.firstStart) {
			bucket.firstStart = start
		}
		if hasEnd && (bucket.lastEnd.IsZero() || end.After(bucket.lastEnd)) {
			bucket.lastEnd = end
		}

		divisionKey := item.Division
		if divisionKey == "" {
			divisionKey = "Unspecified"
		}
		div, ok := divisions[divisionKey]
		if !ok {
			div = &divisionAcc{division: divisionKey, areas: make(map[string]bool)}
			divisions[divisionKey] = div
		}
		div.count++
		div.totalHours += duration
		if item.Area != "" {
			div.areas[item.Area] = true
		}

		typeKey := item.Type
		if typeKey == "" {
			typeKey = "scheduled"
		}
		typeCounts[typeKey]++

		if !start.After(window24h) {
			within24h++
		}
		if nextStart.IsZero() || start.Before(nextStart) {
			nextStart = start
		}

		entry := Entry{
			Area:       orUnspecified(item.Area),
			Division:   item.Division,
			Feeder:     item.Feeder,
			Start:      start.Format(time.RFC3339),
			Hours:      round2(duration),
			Type:       item.Type,
			Reason:     item.Reason,
			Source:     item.Source,
			Confidence: item.Confidence,
		}
		if hasEnd {
			entry.End = end.Format(time.RFC3339)
		}
		ranked = append(ranked, rankedEntry{start: start, duration: duration, entry: entry})
	}

	report := Report{
		OK:          true,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Window: Window{
			Start: now.Format(time.RFC3339),
			End:   windowEnd.Format(time.RFC3339),
			Days:  days,
		},
		Totals: Totals{
			Count:      count,
			Areas:      len(areas),
			Divisions:  len(divisions),
			TotalHours: round2(totalHours),
			Within24h:  within24h,
		},
		Daily:     dailyOut(daily),
		Divisions: divisionOut(divisions),
		Types:     typeOut(typeCounts, count),
		Upcoming:  upcomingOut(ranked),
		Longest:   longestOut(ranked),
	}
	if count > 0 {
		report.Totals.AverageHours = round2(totalHours / float64(count))
	}
	if !nextStart.IsZero() {
		report.Totals.NextStart = nextStart.Format(time.RFC3339)
	}
	return report
}

type dayAcc struct {
	date       string
	label      string
	count      int
	totalHours float64
	areas      map[string]bool
	firstStart time.Time
	lastEnd    time.Time
}

type divisionAcc struct {
	division   string
	count      int
	totalHours float64
	areas      map[string]bool
}

type rankedEntry struct {
	start    time.Time
	duration float64
	entry    Entry
}

func parseStamp(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// durationHours defaults to one hour when the end is missing or not
// after the start, and never reports less than one minute.
func durationHours(start, end time.Time, hasEnd bool) float64 {
	d := defaultDuration
	if hasEnd && end.After(start) {
		d = end.Sub(start)
	}
	if d < minimumDuration {
		d = minimumDuration
	}
	return round2(d.Hours())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func orUnspecified(area string) string {
	if area == "" {
		return "Unspecified area"
	}
	return area
}

func dailyOut(daily map[string]*dayAcc) []DayBucket {
	out := make([]DayBucket, 0, len(daily))
	for _, acc := range daily {
		bucket := DayBucket{
			Date:          acc.date,
			Label:         acc.label,
			Count:         acc.count,
			TotalHours:    round2(acc.totalHours),
			DistinctAreas: len(acc.areas),
		}
		if !acc.firstStart.IsZero() {
			bucket.FirstStart = acc.firstStart.Format(time.RFC3339)
		}
		if !acc.lastEnd.IsZero() {
			bucket.LastEnd = acc.lastEnd.Format(time.RFC3339)
		}
		out = append(out, bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func divisionOut(divisions map[string]*divisionAcc) []DivisionRank {
	out := make([]DivisionRank, 0, len(divisions))
	for _, acc := range divisions {
		out = append(out, DivisionRank{
			Division:      acc.division,
			Count:         acc.count,
			TotalHours:    round2(acc.totalHours),
			DistinctAreas: len(acc.areas),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].TotalHours > out[j].TotalHours
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func typeOut(typeCounts map[string]int, total int) []TypeShare {
	out := make([]TypeShare, 0, len(typeCounts))
	for name, n := range typeCounts {
		share := 0.0
		if total > 0 {
			share = round2(float64(n) / float64(total) * 100)
		}
		out = append(out, TypeShare{Type: name, Count: n, Share: share})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

func upcomingOut(ranked []rankedEntry) []Entry {
	sorted := make([]rankedEntry, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start.Before(sorted[j].start) })
	return takeEntries(sorted, topN)
}

func longestOut(ranked []rankedEntry) []Entry {
	sorted := make([]rankedEntry, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].duration != sorted[j].duration {
			return sorted[i].duration > sorted[j].duration
		}
		return sorted[i].entry.Start < sorted[j].entry.Start
	})
	return takeEntries(sorted, topN)
}

func takeEntries(ranked []rankedEntry, n int) []Entry {
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]Entry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}
