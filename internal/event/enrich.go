package event

import (
	"sort"
	"strings"
)

// AreaInfo is the static metadata known for one locality.
type AreaInfo struct {
	Division string   `json:"division,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// AreaIndex is a read-only lookup from lowercased area name to its
// division and coordinates. It is loaded once and passed in explicitly;
// enrichment never mutates it.
type AreaIndex map[string]AreaInfo

// NewAreaIndex lowercases the keys of a raw lookup table.
func NewAreaIndex(raw map[string]AreaInfo) AreaIndex {
	idx := make(AreaIndex, len(raw))
	for area, info := range raw {
		idx[strings.ToLower(strings.TrimSpace(area))] = info
	}
	return idx
}

// Enrich annotates an event with division and coordinates when its area
// has a known entry. Unmatched areas pass through untouched; the step is
// pure and applied uniformly to merged and re-read events.
func (idx AreaIndex) Enrich(ev Event) Event {
	if len(idx) == 0 || ev.Area == "" {
		return ev
	}
	info, ok := idx[strings.ToLower(ev.Area)]
	if !ok {
		return ev
	}
	if info.Division != "" {
		ev.Division = info.Division
	}
	if ev.Lat == nil && info.Lat != nil {
		ev.Lat = info.Lat
	}
	if ev.Lng == nil && info.Lng != nil {
		ev.Lng = info.Lng
	}
	return ev
}

// Divisions lists the distinct division labels in the index, sorted.
func (idx AreaIndex) Divisions() []string {
	seen := make(map[string]bool)
	var divs []string
	for _, info := range idx {
		if info.Division == "" || seen[info.Division] {
			continue
		}
		seen[info.Division] = true
		divs = append(divs, info.Division)
	}
	sort.Strings(divs)
	return divs
}

// EnrichAll applies Enrich across a slice, returning a new slice.
func (idx AreaIndex) EnrichAll(items []Event) []Event {
	out := make([]Event, len(items))
	for i, ev := range items {
		out[i] = idx.Enrich(ev)
	}
	return out
}
