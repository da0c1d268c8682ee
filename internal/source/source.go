// Package source implements one fetch-and-parse adapter per upstream
// origin. Every upstream is irregular and undocumented, so each adapter
// layers heuristics and fails soft: "nothing recognizable" is an empty
// candidate list, and only hard I/O failures surface as errors.
package source

import (
	"context"
	"net/http"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// Fetcher downloads a URL body. A nil error with a body means 2xx;
// non-2xx and transport failures are errors.
type Fetcher interface {
	Get(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// Source is one fetch+parse strategy for one upstream origin. Fetch
// returns an empty list when nothing parseable was found; an error means
// a hard I/O failure the orchestrator should report.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]event.RawCandidate, error)
}
