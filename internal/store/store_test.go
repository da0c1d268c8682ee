package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

var storeNow = time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), clockwork.NewFakeClockAt(storeNow))
	require.NoError(t, err)
	return s
}

func testEvent(area, feeder, start string) event.Event {
	return event.Event{
		Utility: "LESCO",
		Area:    area,
		Feeder:  feeder,
		Start:   start,
		Type:    "scheduled",
		Source:  "official",
	}
}

func TestNewSeedsEmptySchedule(t *testing.T) {
	s := newTestStore(t)

	sched, err := s.ReadSchedule()
	require.NoError(t, err)
	assert.Empty(t, sched.Items)
	assert.Empty(t, sched.UpdatedAt)

	info, err := os.Stat(filepath.Join(s.Dir(), "schedule.json"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWriteScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	items := []event.Event{
		testEvent("Gulberg", "F-12", "2026-09-05T09:00:00Z"),
		testEvent("Model Town", "F-7", "2026-09-06T10:00:00Z"),
	}

	require.NoError(t, s.WriteSchedule(items))

	sched, err := s.ReadSchedule()
	require.NoError(t, err)
	assert.Equal(t, storeNow.Format(time.RFC3339), sched.UpdatedAt)
	require.Len(t, sched.Items, 2)
	assert.Equal(t, "Gulberg", sched.Items[0].Area)
	assert.Equal(t, "F-7", sched.Items[1].Feeder)
}

func TestWriteScheduleHistoryMergesByIdentity(t *testing.T) {
	s := newTestStore(t)
	first := testEvent("Gulberg", "F-12", "2026-09-05T09:00:00Z")
	other := testEvent("Model Town", "F-7", "2026-09-06T10:00:00Z")

	require.NoError(t, s.WriteSchedule([]event.Event{first}))

	// Second run updates the same identity and adds a new one; the day
	// file must hold two entries, not three.
	updated := first
	updated.Reason = "cable replacement"
	require.NoError(t, s.WriteSchedule([]event.Event{updated, other}))

	day, err := s.ReadHistory("2026-09-05")
	require.NoError(t, err)
	require.Len(t, day, 2)

	byFeeder := map[string]event.Event{}
	for _, ev := range day {
		byFeeder[ev.Feeder] = ev
	}
	assert.Equal(t, "cable replacement", byFeeder["F-12"].Reason)
}

func TestWriteScheduleChangelog(t *testing.T) {
	s := newTestStore(t)
	a := testEvent("Gulberg", "F-12", "2026-09-05T09:00:00Z")
	b := testEvent("Model Town", "F-7", "2026-09-06T10:00:00Z")
	c := testEvent("Kasur", "F-3", "2026-09-07T11:00:00Z")

	require.NoError(t, s.WriteSchedule([]event.Event{a, b}))
	require.NoError(t, s.WriteSchedule([]event.Event{b, c}))

	entries, err := s.ReadChangelog(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first: the second write swapped a for c.
	assert.Equal(t, 1, entries[0].Added)
	assert.Equal(t, 1, entries[0].Removed)
	assert.Equal(t, 2, entries[1].Added)
	assert.Equal(t, 0, entries[1].Removed)
}

func TestReadChangelogLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.WriteSchedule(nil))
	}

	entries, err := s.ReadChangelog(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestReadHistoryValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadHistory("not-a-day")
	assert.Error(t, err)

	_, err = s.ReadHistory("2026-09-05; rm -rf /")
	assert.Error(t, err)

	day, err := s.ReadHistory("2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, day)
}

func TestScheduleEnrichedFromAreasFile(t *testing.T) {
	dir := t.TempDir()
	areas := map[string]event.AreaInfo{
		"Gulberg": {Division: "Lahore"},
	}
	data, err := json.Marshal(areas)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "areas.json"), data, 0o664))

	s, err := New(dir, clockwork.NewFakeClockAt(storeNow))
	require.NoError(t, err)

	require.NoError(t, s.WriteSchedule([]event.Event{
		testEvent("GULBERG", "F-12", "2026-09-05T09:00:00Z"),
		testEvent("Unknown Place", "F-9", "2026-09-05T10:00:00Z"),
	}))

	sched, err := s.ReadSchedule()
	require.NoError(t, err)
	require.Len(t, sched.Items, 2)
	assert.Equal(t, "Lahore", sched.Items[0].Division)
	assert.Empty(t, sched.Items[1].Division)

	assert.Equal(t, []string{"Lahore"}, s.Divisions())
}

func TestWriteScheduleLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteSchedule([]event.Event{testEvent("Gulberg", "F-12", "2026-09-05T09:00:00Z")}))

	matches, err := filepath.Glob(filepath.Join(s.Dir(), "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
