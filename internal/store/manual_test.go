package store

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

func TestReadManualMissingFile(t *testing.T) {
	s := newTestStore(t)

	items, err := s.ReadManual()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAppendManualEntryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defaults := event.Defaults{Utility: "LESCO", Location: time.UTC}

	ev, err := s.AppendManualEntry(event.RawCandidate{
		Area:   "Gulberg",
		Feeder: "F-12",
		Start:  "2026-09-05 09:00",
		End:    "2026-09-05 13:00",
		Reason: "planned maintenance",
	}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "LESCO", ev.Utility)
	assert.Equal(t, "2026-09-05T09:00:00Z", ev.Start)
	assert.Equal(t, "manual", ev.Source)
	assert.Equal(t, manualDefaultConfidence, ev.Confidence)

	_, err = s.AppendManualEntry(event.RawCandidate{
		Area:  "Model Town",
		Start: "2026-09-06 10:00",
	}, defaults)
	require.NoError(t, err)

	items, err := s.ReadManual()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Gulberg", items[0].Area)
	assert.Equal(t, "F-12", items[0].Feeder)
	assert.Equal(t, "2026-09-05T09:00:00Z", items[0].Start)
	assert.Equal(t, "Model Town", items[1].Area)
	assert.Equal(t, "manual", items[1].Source)
	assert.Equal(t, manualDefaultConfidence, items[1].Confidence)
}

func TestAppendManualEntryWritesHeaderOnce(t *testing.T) {
	s := newTestStore(t)
	defaults := event.Defaults{Utility: "LESCO", Location: time.UTC}

	for _, area := range []string{"Gulberg", "Model Town"} {
		_, err := s.AppendManualEntry(event.RawCandidate{Area: area, Start: "2026-09-05 09:00"}, defaults)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(s.manualPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(manualHeaders, ","), lines[0])
	assert.Contains(t, lines[1], "Gulberg")
	assert.Contains(t, lines[2], "Model Town")
}

func TestManualCandidateDefaults(t *testing.T) {
	cand := manualCandidate(map[string]string{
		"area":  "Gulberg",
		"start": "2026-09-05 09:00",
	})
	assert.Equal(t, "scheduled", cand.Type)
	assert.Equal(t, "manual", cand.Source)
	assert.Equal(t, manualDefaultConfidence, cand.Confidence)

	cand = manualCandidate(map[string]string{
		"area":       "Gulberg",
		"start":      "2026-09-05 09:00",
		"type":       "maintenance",
		"source":     "opsdesk",
		"confidence": "0.95",
	})
	assert.Equal(t, "maintenance", cand.Type)
	assert.Equal(t, "opsdesk", cand.Source)
	assert.Equal(t, 0.95, cand.Confidence)
}

func TestReadManualEmptyFile(t *testing.T) {
	s, err := New(t.TempDir(), clockwork.NewFakeClockAt(storeNow))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.manualPath, nil, 0o664))

	items, err := s.ReadManual()
	require.NoError(t, err)
	assert.Empty(t, items)
}
