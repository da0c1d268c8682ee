// Package app builds and holds the service dependencies shared by the
// CLI commands.
package app

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/config"
	"github.com/gridwatch/shutdown-crawler/internal/event"
	"github.com/gridwatch/shutdown-crawler/internal/fetch"
	"github.com/gridwatch/shutdown-crawler/internal/forecast"
	"github.com/gridwatch/shutdown-crawler/internal/ingest"
	"github.com/gridwatch/shutdown-crawler/internal/logging"
	"github.com/gridwatch/shutdown-crawler/internal/metrics"
	"github.com/gridwatch/shutdown-crawler/internal/store"
)

// App owns the wired service graph for one process.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        *store.Store
	Fetcher      *fetch.Client
	Orchestrator *ingest.Orchestrator
	Forecast     *forecast.Engine
	Defaults     event.Defaults
	Clock        clockwork.Clock
}

// New loads configuration and builds every dependency.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Ingest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Ingest.Timezone, err)
	}

	metrics.Init()

	clock := clockwork.NewRealClock()
	st, err := store.New(cfg.Store.Dir, clock)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	fetcher := fetch.NewClient(fetch.Options{
		UserAgent:      cfg.HTTP.UserAgent,
		RequestTimeout: cfg.RequestTimeout(),
		ConnectTimeout: cfg.ConnectTimeout(),
	}, logger)

	defaults := event.Defaults{Utility: cfg.Ingest.Utility, Location: loc}
	sources := ingest.BuildSources(&cfg, fetcher, st, logger)
	orchestrator := ingest.NewOrchestrator(&cfg, sources, st, defaults, clock, logger)

	return &App{
		Config:       &cfg,
		Logger:       logger,
		Store:        st,
		Fetcher:      fetcher,
		Orchestrator: orchestrator,
		Forecast:     forecast.NewEngine(loc),
		Defaults:     defaults,
		Clock:        clock,
	}, nil
}

// Close flushes buffered log entries.
func (a *App) Close() {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
