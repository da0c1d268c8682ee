package event

import (
	"strings"
	"time"
)

// DefaultConfidence is assumed for candidates whose adapter declared none.
const DefaultConfidence = 0.7

// Defaults carries the per-deployment constants Normalize falls back to.
type Defaults struct {
	Utility  string
	Location *time.Location
}

// looseLayouts are the datetime shapes the upstream sources actually
// publish, tried in order. Layouts without an offset are interpreted in
// the configured default timezone.
var looseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006 3:04 PM",
	"02-01-2006 3:04PM",
	"02-01-2006",
	"02/01/2006 15:04",
	"02/01/2006 3:04 PM",
	"02/01/2006",
}

// ParseLoose parses one of the known upstream datetime shapes into an
// absolute time. The boolean reports whether any layout matched.
func ParseLoose(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	value = cleanDateTime(value)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range looseLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cleanDateTime(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	value = strings.ReplaceAll(value, "a.m.", "AM")
	value = strings.ReplaceAll(value, "p.m.", "PM")
	value = strings.ReplaceAll(value, " am", " AM")
	value = strings.ReplaceAll(value, " pm", " PM")
	// dd.mm.yyyy is seen on older bulletins.
	if len(value) >= 10 && strings.Count(value[:10], ".") == 2 {
		value = strings.Replace(value, ".", "-", 2)
	}
	return value
}

// Normalize canonicalizes one raw candidate: trims strings, applies
// defaults, resolves start/end into offset-aware RFC 3339 strings, and
// clamps an end earlier than start to equal start. A candidate whose
// start cannot be parsed comes back with an empty Start; Merge discards
// those.
func Normalize(raw RawCandidate, defaults Defaults) Event {
	ev := Event{
		Utility:    strings.TrimSpace(raw.Utility),
		Area:       strings.TrimSpace(raw.Area),
		Feeder:     strings.TrimSpace(raw.Feeder),
		Type:       strings.TrimSpace(raw.Type),
		Reason:     strings.TrimSpace(raw.Reason),
		Source:     strings.TrimSpace(raw.Source),
		URL:        strings.TrimSpace(raw.URL),
		Confidence: raw.Confidence,
	}
	if ev.Utility == "" {
		ev.Utility = defaults.Utility
	}
	if ev.Type == "" {
		ev.Type = InferType(ev.Reason)
	}
	if ev.Confidence == 0 {
		ev.Confidence = DefaultConfidence
	}

	start, startOK := ParseLoose(raw.Start, defaults.Location)
	end, endOK := ParseLoose(raw.End, defaults.Location)
	if startOK {
		if endOK && end.Before(start) {
			end = start
		}
		ev.Start = start.Format(time.RFC3339)
		if endOK {
			ev.End = end.Format(time.RFC3339)
		}
	}
	if ev.Source != "" {
		ev.Sources = []string{ev.Source}
	}
	return ev
}

// InferType maps free-form reason text to a shutdown type. Anything that
// is neither maintenance nor an emergency counts as scheduled.
func InferType(reason string) string {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "maint"):
		return "maintenance"
	case strings.Contains(lower, "emerg"):
		return "forced"
	default:
		return "scheduled"
	}
}
