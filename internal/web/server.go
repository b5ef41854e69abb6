// Package web provides an HTTP status server for the water-sensor daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *Hub
	log        *zap.Logger
}

// New creates a Server that reads state from the given tracker. hub may be
// nil, in which case /ws is not served.
func New(addr string, tracker *status.Tracker, hub *Hub, log *zap.Logger) *Server {
	s := &Server{tracker: tracker, hub: hub, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)
	r.Get("/health", s.handleHealth)
	if hub != nil {
		r.Get("/ws", s.handleWS)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, s.hub != nil); err != nil {
		s.log.Warn("render status page", zap.Error(err))
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// HealthJSON is the body of /health.
type HealthJSON struct {
	Healthy         bool   `json:"healthy"`
	Level           string `json:"level"`
	LastSampleAgeMs int64  `json:"last_sample_age_ms"`
}

// staleAfter is how many poll intervals may pass without a sample before the
// daemon is reported unhealthy.
const staleAfter = 3

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()

	h := HealthJSON{Level: snap.Level.String(), LastSampleAgeMs: -1}
	if !snap.LastSample.IsZero() {
		age := snap.Now.Sub(snap.LastSample)
		h.LastSampleAgeMs = age.Milliseconds()
		limit := staleAfter * time.Duration(snap.Config.PollMs) * time.Millisecond
		h.Healthy = limit <= 0 || age <= limit
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}
