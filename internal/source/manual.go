package source

import (
	"context"
	"fmt"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// ManualReader is the slice of the store the manual source needs.
type ManualReader interface {
	ReadManual() ([]event.RawCandidate, error)
}

// ManualSource surfaces operator-entered CSV records as a regular
// source so they flow through the same merge as the scraped ones.
type ManualSource struct {
	reader ManualReader
}

func NewManualSource(reader ManualReader) *ManualSource {
	return &ManualSource{reader: reader}
}

func (s *ManualSource) Name() string { return "manual" }

func (s *ManualSource) Fetch(_ context.Context) ([]event.RawCandidate, error) {
	items, err := s.reader.ReadManual()
	if err != nil {
		return nil, fmt.Errorf("manual: %w", err)
	}
	return items, nil
}
