// Package ingest runs one full fetch-merge-persist cycle across the
// configured sources.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/config"
	"github.com/gridwatch/shutdown-crawler/internal/event"
	"github.com/gridwatch/shutdown-crawler/internal/metrics"
	"github.com/gridwatch/shutdown-crawler/internal/source"
)

// SourceReport is one source's outcome within a run. Either Count and
// Sample are set (ok) or Error is (failed); a failed source simply
// contributes nothing to the merge.
type SourceReport struct {
	OK     bool                 `json:"ok"`
	Count  int                  `json:"count,omitempty"`
	Sample []event.RawCandidate `json:"sample,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// Report is the machine-readable record of one ingestion run. It
// always enumerates every enabled source, so partial data is
// transparent rather than silent.
type Report struct {
	RunID       string                  `json:"runId"`
	GeneratedAt string                  `json:"generatedAt"`
	Total       int                     `json:"total"`
	Sources     map[string]SourceReport `json:"sources"`
}

// Persister stores the merged event list; a write failure is a hard
// error for the run.
type Persister interface {
	WriteSchedule(items []event.Event) error
}

// Orchestrator invokes each enabled source in configuration order with
// per-source failure isolation, merges the results and persists them.
type Orchestrator struct {
	cfg       *config.Config
	sources   []source.Source
	persister Persister
	defaults  event.Defaults
	clock     clockwork.Clock
	logger    *zap.Logger
}

func NewOrchestrator(cfg *config.Config, sources []source.Source, persister Persister, defaults event.Defaults, clock clockwork.Clock, logger *zap.Logger) *Orchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		cfg:       cfg,
		sources:   sources,
		persister: persister,
		defaults:  defaults,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one ingestion cycle. Source failures are reported, not
// propagated; only persistence failure aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (Report, []event.Event, error) {
	runID := uuid.NewString()
	started := o.clock.Now()
	logger := o.logger.With(zap.String("run_id", runID))
	logger.Info("ingestion run started", zap.Int("sources", len(o.sources)))

	report := Report{
		RunID:       runID,
		GeneratedAt: started.UTC().Format(time.RFC3339),
		Sources:     make(map[string]SourceReport, len(o.sources)),
	}

	var lists [][]event.RawCandidate
	for _, src := range o.sources {
		items, err := o.fetchOne(ctx, src)
		metrics.ObserveSource(src.Name(), len(items), err)
		if err != nil {
			logger.Warn("source failed", zap.String("source", src.Name()), zap.Error(err))
			report.Sources[src.Name()] = SourceReport{Error: err.Error()}
			continue
		}
		logger.Info("source fetched", zap.String("source", src.Name()), zap.Int("count", len(items)))
		report.Sources[src.Name()] = SourceReport{
			OK:     true,
			Count:  len(items),
			Sample: sample(items, o.cfg.Ingest.SampleSize),
		}
		lists = append(lists, items)
	}

	merged := event.Merge(lists, o.defaults)
	report.Total = len(merged)

	if err := o.persister.WriteSchedule(merged); err != nil {
		metrics.ObserveRun("error", len(merged), o.clock.Since(started))
		return report, nil, fmt.Errorf("ingest: persist schedule: %w", err)
	}

	metrics.ObserveRun("ok", len(merged), o.clock.Since(started))
	logger.Info("ingestion run finished",
		zap.Int("merged", len(merged)),
		zap.Duration("elapsed", o.clock.Since(started)))
	return report, merged, nil
}

// fetchOne isolates a single source call, converting panics from a
// misbehaving parser into reported errors.
func (o *Orchestrator) fetchOne(ctx context.Context, src source.Source) (items []event.RawCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("source panic: %v", r)
		}
	}()
	return src.Fetch(ctx)
}

func sample(items []event.RawCandidate, n int) []event.RawCandidate {
	if n <= 0 {
		n = 3
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]event.RawCandidate, len(items))
	copy(out, items)
	return out
}
