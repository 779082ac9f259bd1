// Package health provides HTTP liveness and readiness endpoints.
//
// Docker and Kubernetes use these to monitor the server. /healthz returns
// 200 once the transports are started. /readyz additionally probes the
// speech engine, so a host without espeak reports not ready.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nadzzz/readaloud/internal/tts"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	engine tts.Engine
	ready  atomic.Bool
	server *http.Server
}

// New creates a new health check server that probes engine for readiness.
func New(port int, engine tts.Engine) *Server {
	return &Server{port: port, engine: engine}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if !s.engine.Available(ctx) {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{
				"status": "engine_unavailable",
				"engine": s.engine.Name(),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok", "engine": s.engine.Name()})
	})

	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
