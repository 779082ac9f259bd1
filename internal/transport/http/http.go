// Package http implements the HTTP transport for readaloud.
//
// One listener serves the MCP streamable HTTP endpoint at /mcp for MCP
// clients, a small REST API under /v1 for everything else, and the Swagger
// UI for the REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/readaloud/docs" // registers the OpenAPI spec
	"github.com/nadzzz/readaloud/internal/mcpserver"
	"github.com/nadzzz/readaloud/internal/message"
	"github.com/nadzzz/readaloud/internal/transport"
	"github.com/nadzzz/readaloud/internal/tts"
)

// maxBodyBytes bounds REST request bodies.
const maxBodyBytes = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port    int
	version string
	server  *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, version string) *Transport {
	return &Transport{port: port, version: version}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and serves requests from svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           Handler(svc, t.version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port, "mcp_endpoint", "/mcp")

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// Handler builds the router for svc.
func Handler(svc transport.Service, version string) http.Handler {
	mcpServer := mcpserver.New(svc, version)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	h := &handlers{svc: svc}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/read-aloud", h.readAloud)
		r.Get("/voices", h.listVoices)
		r.Get("/audio", h.listAudio)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return r
}

type handlers struct {
	svc transport.Service
}

// readAloud handles POST /v1/read-aloud.
//
// @Summary     Convert text to speech
// @Description Synthesizes the text into a new audio file and, unless play is false, plays it on the
// @Description server's speakers. A playback failure is reported in the message, not as an error.
// @Tags        speech
// @Accept      json
// @Produce     json
// @Param       request  body      message.ReadAloudRequest  true  "Text and synthesis options"
// @Success     200      {object}  message.ReadAloudResult
// @Failure     400      {object}  message.ErrorResult  "Empty text or invalid options"
// @Failure     500      {object}  message.ErrorResult  "Synthesis failed"
// @Failure     503      {object}  message.ErrorResult  "Speech engine not installed or unreachable"
// @Router      /v1/read-aloud [post]
func (h *handlers) readAloud(w http.ResponseWriter, r *http.Request) {
	var req message.ReadAloudRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message.ErrorResult{Error: "invalid json: " + err.Error()})
		return
	}

	res, err := h.svc.ReadAloud(r.Context(), &req)
	if err != nil {
		writeJSON(w, StatusFor(err), message.ErrorResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// listVoices handles GET /v1/voices.
//
// @Summary     List voices
// @Description Lists the voices of the speech engine. Never fails: an unavailable engine yields an empty list.
// @Tags        speech
// @Produce     json
// @Success     200  {object}  message.VoicesResult
// @Router      /v1/voices [get]
func (h *handlers) listVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListVoices(r.Context()))
}

// listAudio handles GET /v1/audio.
//
// @Summary     List generated audio files
// @Description Lists stored audio files, newest first.
// @Tags        audio
// @Produce     json
// @Success     200  {object}  message.AudioListResult
// @Failure     500  {object}  message.ErrorResult
// @Router      /v1/audio [get]
func (h *handlers) listAudio(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListAudio(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message.ErrorResult{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, tts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, tts.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

// requestLogger logs one line per request with slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
