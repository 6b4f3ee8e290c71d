package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neox5/vitalsync/internal/display"
	"github.com/neox5/vitalsync/internal/metric"
	"github.com/neox5/vitalsync/internal/state"
)

// Server provides the HTTP display of the synchronized state.
type Server struct {
	addr     string
	server   *http.Server
	registry *metric.Registry
	store    *state.Store
}

// New creates a display server listening on port.
func New(port int, registry *metric.Registry, store *state.Store) *Server {
	addr := fmt.Sprintf(":%d", port)

	s := &Server{
		addr:     addr,
		registry: registry,
		store:    store,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the display routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleText)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /status/{metric}", s.handleMetric)
	return mux
}

// Start begins serving HTTP requests and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting display server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

// shutdown gracefully stops the server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down display server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := display.Render(w, s.registry, s.store); err != nil {
		slog.Debug("display write failed", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, display.Views(s.registry, s.store))
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	d, ok := s.registry.Lookup(metric.Key(r.PathValue("metric")))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown metric"})
		return
	}
	writeJSON(w, http.StatusOK, display.NewView(d, s.store.Read(d.Key)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("status write failed", "error", err)
	}
}
