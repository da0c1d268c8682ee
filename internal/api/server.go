// Package api exposes the HTTP interface for the shutdown crawler.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gridwatch/shutdown-crawler/internal/event"
	"github.com/gridwatch/shutdown-crawler/internal/forecast"
	"github.com/gridwatch/shutdown-crawler/internal/ingest"
	"github.com/gridwatch/shutdown-crawler/internal/metrics"
	"github.com/gridwatch/shutdown-crawler/internal/store"
)

// Ingester runs one full fetch-merge-persist cycle on demand.
type Ingester interface {
	Run(ctx context.Context) (ingest.Report, []event.Event, error)
}

// Server wires HTTP handlers to the store, the forecast engine and
// the on-demand ingester.
type Server struct {
	router   chi.Router
	store    *store.Store
	engine   *forecast.Engine
	ingester Ingester
	defaults event.Defaults
	clock    clockwork.Clock
	logger   *zap.Logger

	mu         sync.Mutex
	lastReport *ingest.Report
}

// NewServer constructs a Server with middleware and routes.
func NewServer(st *store.Store, engine *forecast.Engine, ingester Ingester, defaults event.Defaults, clock clockwork.Clock, logger *zap.Logger) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &Server{
		store:    st,
		engine:   engine,
		ingester: ingester,
		defaults: defaults,
		clock:    clock,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schedule", s.schedule)
		r.Post("/refresh", s.refresh)
		r.Get("/forecast", s.forecast)
		r.Get("/report", s.report)
		r.Get("/divisions", s.divisions)
		r.Get("/history", s.history)
		r.Get("/changelog", s.changelog)
		r.Post("/manual", s.addManual)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// schedule returns the persisted events, optionally narrowed by
// q/area/feeder/division/date query filters.
func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.ReadSchedule()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	q := r.URL.Query()
	filtered := store.FilterItems(sched.Items, store.Filters{
		Query:    q.Get("q"),
		Area:     q.Get("area"),
		Feeder:   q.Get("feeder"),
		Division: q.Get("division"),
		Date:     q.Get("date"),
	}, s.clock.Now(), s.defaults.Location)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"updatedAt": sched.UpdatedAt,
		"total":     len(sched.Items),
		"count":     len(filtered),
		"items":     filtered,
	})
}

// refresh triggers a full ingestion run and returns its report.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	report, merged, err := s.ingester.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"count":     len(merged),
		"updatedAt": report.GeneratedAt,
		"report":    report,
	})
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.ReadSchedule()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	report := s.engine.Forecast(sched.Items, days, s.clock.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"forecast":          report,
		"scheduleUpdatedAt": sched.UpdatedAt,
	})
}

// report returns the report from the most recent ingestion run, if any.
func (s *Server) report(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	last := s.lastReport
	s.mu.Unlock()
	if last == nil {
		writeError(w, http.StatusNotFound, "no ingestion run yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": last})
}

func (s *Server) divisions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"divisions": s.store.Divisions(),
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = s.clock.Now().UTC().Format("2006-01-02")
	}
	items, err := s.store.ReadHistory(day)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"day":   day,
		"count": len(items),
		"items": items,
	})
}

func (s *Server) changelog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := s.store.ReadChangelog(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": entries})
}

// addManual appends an operator-entered record to manual.csv. Area,
// feeder and start are required.
func (s *Server) addManual(w http.ResponseWriter, r *http.Request) {
	var raw event.RawCandidate
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if raw.Area == "" {
		writeError(w, http.StatusBadRequest, "missing field: area")
		return
	}
	if raw.Feeder == "" {
		writeError(w, http.StatusBadRequest, "missing field: feeder")
		return
	}
	if raw.Start == "" {
		writeError(w, http.StatusBadRequest, "missing field: start")
		return
	}
	entry, err := s.store.AppendManualEntry(raw, s.defaults)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entry": entry})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
