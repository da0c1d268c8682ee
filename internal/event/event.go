// Package event defines the canonical shutdown record and the
// normalization, merge, and enrichment steps every source feeds into.
package event

// RawCandidate is the loosely-typed record a source adapter emits before
// normalization. Start and End stay as the raw strings the upstream
// published; only Normalize turns them into absolute timestamps.
type RawCandidate struct {
	Utility    string  `json:"utility,omitempty"`
	Area       string  `json:"area,omitempty"`
	Feeder     string  `json:"feeder,omitempty"`
	Start      string  `json:"start,omitempty"`
	End        string  `json:"end,omitempty"`
	Type       string  `json:"type,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Source     string  `json:"source,omitempty"`
	URL        string  `json:"url,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Event is the canonical shutdown record after normalization and merge.
// Start and End hold RFC 3339 timestamps with an explicit offset so the
// merge sort and the identity key can compare them lexically; End is the
// empty string when the upstream never published one. Exporters rely on
// every field being defined (empty string rather than absent).
type Event struct {
	Utility    string   `json:"utility"`
	Area       string   `json:"area"`
	Feeder     string   `json:"feeder"`
	Division   string   `json:"division,omitempty"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Type       string   `json:"type"`
	Reason     string   `json:"reason"`
	Source     string   `json:"source"`
	Sources    []string `json:"sources,omitempty"`
	URL        string   `json:"url"`
	Confidence float64  `json:"confidence"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}
