package event

import (
	"sort"
	"strings"
)

// IdentityKey is the dedup key for a normalized event. Two candidates
// sharing a key describe the same real-world shutdown. Feeder-less rows
// fall back to the area so unrelated notices at the same instant are not
// collapsed under an empty feeder.
func IdentityKey(ev Event) string {
	feeder := strings.ToLower(ev.Feeder)
	if feeder == "" {
		feeder = "area:" + strings.ToLower(ev.Area)
	}
	return feeder + "|" + ev.Start + "|" + ev.End
}

// Merge normalizes every candidate from every source, groups them by
// identity key, and resolves each group to one event: the
// highest-confidence candidate wins, empty fields on the winner are
// back-filled from the next-highest candidate that has them, and the
// sources set is the union of every contributing adapter. Candidates
// without a resolvable start, or with neither area nor feeder, are
// dropped. The result is sorted ascending by start.
func Merge(lists [][]RawCandidate, defaults Defaults) []Event {
	groups := make(map[string][]Event)
	var order []string

	for _, list := range lists {
		for _, raw := range list {
			ev := Normalize(raw, defaults)
			if ev.Start == "" {
				continue
			}
			if ev.Area == "" && ev.Feeder == "" {
				continue
			}
			key := IdentityKey(ev)
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], ev)
		}
	}

	merged := make([]Event, 0, len(order))
	for _, key := range order {
		merged = append(merged, resolveGroup(groups[key]))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})
	return merged
}

// resolveGroup collapses candidates sharing an identity key. Ties on
// confidence keep the first-seen candidate so merge stays deterministic.
func resolveGroup(group []Event) Event {
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].Confidence > group[j].Confidence
	})

	primary := group[0]
	for _, next := range group[1:] {
		if primary.Area == "" {
			primary.Area = next.Area
		}
		if primary.Feeder == "" {
			primary.Feeder = next.Feeder
		}
		if primary.End == "" {
			primary.End = next.End
		}
		if primary.Type == "" {
			primary.Type = next.Type
		}
		if primary.Reason == "" {
			primary.Reason = next.Reason
		}
		if primary.Source == "" {
			primary.Source = next.Source
		}
		if primary.URL == "" {
			primary.URL = next.URL
		}
	}

	primary.Sources = unionSources(group)
	return primary
}

func unionSources(group []Event) []string {
	seen := make(map[string]bool, len(group))
	var union []string
	for _, ev := range group {
		name := strings.TrimSpace(ev.Source)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		union = append(union, name)
	}
	return union
}
