package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/quantpulse/tradeaudit/internal/health"
)

// Server is the serve-mode inspection surface: the last health result
// over HTTP plus prometheus metrics. It holds only display state; the
// audit loop owns the checks.
type Server struct {
	mu   sync.RWMutex
	last *health.Result

	httpServer *http.Server
}

// New builds the HTTP surface on addr, serving metrics from reg
func New(addr string, reg *prometheus.Registry) *Server {
	s := &Server{}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// SetResult publishes the latest run for the HTTP surface. Skipped runs
// do not replace the last completed result.
func (s *Server) SetResult(r *health.Result) {
	if r == nil || r.Skipped {
		return
	}
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
}

// ListenAndServe blocks until the server stops
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP surface listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) result() *health.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// handleHealthz answers 200 unless the last run was critical; 503 with
// no completed run yet, so orchestration treats a cold start as not ready.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	last := s.result()
	if last == nil {
		http.Error(w, "no completed run yet", http.StatusServiceUnavailable)
		return
	}

	code := http.StatusOK
	if last.Status == health.StatusCritical {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   string(last.Status),
		"summary":  last.Summary,
		"run_date": last.RunDate,
	})
}

// handleState dumps the full last result for inspection
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	last := s.result()
	if last == nil {
		http.Error(w, "no completed run yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(last)
}
