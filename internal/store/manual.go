package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

var manualHeaders = []string{"utility", "area", "feeder", "start", "end", "type", "reason", "source", "url", "confidence"}

const manualDefaultConfidence = 0.8

// ReadManual loads operator-entered records from manual.csv. The file
// is treated as just another source; a missing or empty file yields no
// candidates.
func (s *Store) ReadManual() ([]event.RawCandidate, error) {
	f, err := os.Open(s.manualPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: open manual.csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read manual.csv header: %w", err)
	}

	var items []event.RawCandidate
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: read manual.csv row: %w", err)
		}
		record := make(map[string]string, len(header))
		for i, field := range header {
			if i < len(row) {
				record[field] = row[i]
			}
		}
		items = append(items, manualCandidate(record))
	}
	return items, nil
}

func manualCandidate(record map[string]string) event.RawCandidate {
	confidence := manualDefaultConfidence
	if raw := record["confidence"]; raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			confidence = parsed
		}
	}
	cand := event.RawCandidate{
		Utility:    record["utility"],
		Area:       record["area"],
		Feeder:     record["feeder"],
		Start:      record["start"],
		End:        record["end"],
		Type:       record["type"],
		Reason:     record["reason"],
		Source:     record["source"],
		URL:        record["url"],
		Confidence: confidence,
	}
	if cand.Type == "" {
		cand.Type = "scheduled"
	}
	if cand.Source == "" {
		cand.Source = "manual"
	}
	return cand
}

// AppendManualEntry normalizes the entry, appends it to manual.csv
// (writing the header if the file is new) and returns the normalized
// event.
func (s *Store) AppendManualEntry(raw event.RawCandidate, defaults event.Defaults) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw.Source == "" {
		raw.Source = "manual"
	}
	if raw.Confidence == 0 {
		raw.Confidence = manualDefaultConfidence
	}
	normalized := event.Normalize(raw, defaults)

	_, statErr := os.Stat(s.manualPath)
	f, err := os.OpenFile(s.manualPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
	if err != nil {
		return event.Event{}, fmt.Errorf("store: open manual.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if os.IsNotExist(statErr) {
		if err := w.Write(manualHeaders); err != nil {
			return event.Event{}, fmt.Errorf("store: write manual.csv header: %w", err)
		}
	}
	row := []string{
		normalized.Utility,
		normalized.Area,
		normalized.Feeder,
		normalized.Start,
		normalized.End,
		normalized.Type,
		normalized.Reason,
		normalized.Source,
		normalized.URL,
		strconv.FormatFloat(normalized.Confidence, 'f', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return event.Event{}, fmt.Errorf("store: write manual.csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return event.Event{}, fmt.Errorf("store: flush manual.csv: %w", err)
	}
	return s.AreaLookup().Enrich(normalized), nil
}
