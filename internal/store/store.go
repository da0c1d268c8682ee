// Package store persists the merged schedule and its side files under
// a single data directory: schedule.json (current events), manual.csv
// (operator-entered records), areas.json (enrichment lookup), history/
// day files and changelog.ndjson.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/shutdown-crawler/internal/event"
)

// Schedule is the persisted shape of one ingestion run.
type Schedule struct {
	UpdatedAt string        `json:"updatedAt"`
	Items     []event.Event `json:"items"`
}

// ChangeEntry is one changelog.ndjson line.
type ChangeEntry struct {
	TS      string `json:"ts"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
}

type Store struct {
	dir           string
	schedulePath  string
	historyDir    string
	changelogPath string
	manualPath    string
	areasPath     string

	clock clockwork.Clock

	mu        sync.Mutex
	areasOnce sync.Once
	areas     event.AreaIndex
}

var dayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func New(dir string, clock clockwork.Clock) (*Store, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Store{
		dir:           dir,
		schedulePath:  filepath.Join(dir, "schedule.json"),
		historyDir:    filepath.Join(dir, "history"),
		changelogPath: filepath.Join(dir, "changelog.ndjson"),
		manualPath:    filepath.Join(dir, "manual.csv"),
		areasPath:     filepath.Join(dir, "areas.json"),
		clock:         clock,
	}
	if err := os.MkdirAll(s.historyDir, 0o775); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", s.historyDir, err)
	}
	if _, err := os.Stat(s.schedulePath); os.IsNotExist(err) {
		if err := s.writeJSONAtomic(s.schedulePath, Schedule{Items: []event.Event{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// ReadSchedule returns the persisted schedule with enrichment applied,
// so callers see division/coordinates even for items written before
// areas.json last changed.
func (s *Store) ReadSchedule() (Schedule, error) {
	var sched Schedule
	data, err := os.ReadFile(s.schedulePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Schedule{Items: []event.Event{}}, nil
		}
		return sched, fmt.Errorf("store: read schedule: %w", err)
	}
	if err := json.Unmarshal(data, &sched); err != nil {
		return sched, fmt.Errorf("store: decode schedule: %w", err)
	}
	sched.Items = s.AreaLookup().EnrichAll(sched.Items)
	return sched, nil
}

// WriteSchedule atomically replaces the schedule, folds the items into
// today's history file and appends an added/removed changelog line.
// A failed write must never look like success, so every step that can
// fail returns a hard error.
func (s *Store) WriteSchedule(items []event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items = s.AreaLookup().EnrichAll(items)

	prev, err := s.ReadSchedule()
	if err != nil {
		prev = Schedule{}
	}

	now := s.clock.Now().UTC()
	sched := Schedule{UpdatedAt: now.Format(time.RFC3339), Items: items}
	if err := s.writeJSONAtomic(s.schedulePath, sched); err != nil {
		return err
	}
	if err := s.appendHistory(now, items); err != nil {
		return err
	}
	return s.appendChangelog(now, prev.Items, items)
}

func (s *Store) writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// appendHistory merges the new items into the current UTC day file,
// keyed by event identity so repeated runs update rather than append.
func (s *Store) appendHistory(now time.Time, items []event.Event) error {
	day := now.Format("2006-01-02")
	path := filepath.Join(s.historyDir, day+".json")

	var existing []event.Event
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &existing)
	}

	index := make(map[string]int, len(existing))
	merged := make([]event.Event, 0, len(existing)+len(items))
	for _, ev := range existing {
		index[event.IdentityKey(ev)] = len(merged)
		merged = append(merged, ev)
	}
	for _, ev := range items {
		key := event.IdentityKey(ev)
		if at, ok := index[key]; ok {
			merged[at] = ev
			continue
		}
		index[key] = len(merged)
		merged = append(merged, ev)
	}
	return s.writeJSONAtomic(path, merged)
}

func (s *Store) appendChangelog(now time.Time, old, new []event.Event) error {
	oldKeys := keySet(old)
	newKeys := keySet(new)

	entry := ChangeEntry{TS: now.Format(time.RFC3339)}
	for k := range newKeys {
		if !oldKeys[k] {
			entry.Added++
		}
	}
	for k := range oldKeys {
		if !newKeys[k] {
			entry.Removed++
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: encode changelog: %w", err)
	}
	f, err := os.OpenFile(s.changelogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
	if err != nil {
		return fmt.Errorf("store: open changelog: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("store: append changelog: %w", err)
	}
	return nil
}

func keySet(items []event.Event) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, ev := range items {
		set[event.IdentityKey(ev)] = true
	}
	return set
}

// ReadHistory returns the enriched events recorded for one UTC day.
func (s *Store) ReadHistory(day string) ([]event.Event, error) {
	if !dayRe.MatchString(day) {
		return nil, fmt.Errorf("store: invalid day %q", day)
	}
	data, err := os.ReadFile(filepath.Join(s.historyDir, day+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return []event.Event{}, nil
		}
		return nil, fmt.Errorf("store: read history: %w", err)
	}
	var items []event.Event
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("store: decode history: %w", err)
	}
	return s.AreaLookup().EnrichAll(items), nil
}

// ReadChangelog returns up to limit entries, newest first.
func (s *Store) ReadChangelog(limit int) ([]ChangeEntry, error) {
	if limit < 1 {
		limit = 1
	}
	data, err := os.ReadFile(s.changelogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []ChangeEntry{}, nil
		}
		return nil, fmt.Errorf("store: read changelog: %w", err)
	}

	var entries []ChangeEntry
	for _, line := range splitLines(data) {
		var entry ChangeEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

// AreaLookup loads areas.json once; a missing file is an empty index.
func (s *Store) AreaLookup() event.AreaIndex {
	s.areasOnce.Do(func() {
		s.areas = event.AreaIndex{}
		data, err := os.ReadFile(s.areasPath)
		if err != nil {
			return
		}
		var raw map[string]event.AreaInfo
		if err := json.Unmarshal(data, &raw); err != nil {
			return
		}
		s.areas = event.NewAreaIndex(raw)
	})
	return s.areas
}

// Divisions lists the distinct division labels known to areas.json.
func (s *Store) Divisions() []string {
	return s.AreaLookup().Divisions()
}
