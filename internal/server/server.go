// Package server exposes the widget over HTTP: the current reading as JSON,
// boundary updates, a websocket feed of every evaluation, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
	"github.com/smokyabdulrahman/prayer-widget/internal/telemetry"
	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

// maxBodyBytes caps PUT bodies; a boundary map is a few hundred bytes.
const maxBodyBytes = 16 << 10

// Driver is the part of *driver.Driver the server uses.
type Driver interface {
	SetBoundaries(raw map[string]string) error
	Boundaries() (window.BoundarySet, bool)
	Last() (window.Reading, bool)
	Err() error
	State() driver.State
	Subscribe(s driver.Subscriber)
}

// Server serves one driver.
type Server struct {
	driver   Driver
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
	id       string
	router   chi.Router
	hub      *hub
	pingTick time.Duration

	mu    sync.RWMutex
	place string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics adds request instrumentation and a /metrics endpoint.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the router and subscribes to d for live updates.
func New(d Driver, opts ...Option) *Server {
	s := &Server{
		driver:   d,
		logger:   zerolog.Nop(),
		id:       uuid.NewString(),
		hub:      newHub(),
		pingTick: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()

	d.Subscribe(s.hub.publish)
	s.routes()
	return s
}

// SetPlace sets the human-readable location label included in readings.
func (s *Server) SetPlace(place string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.place = place
}

func (s *Server) placeLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.place
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleLive)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/reading", s.handleReading)
		r.Get("/boundaries", s.handleGetBoundaries)
		r.Put("/boundaries", s.handlePutBoundaries)
	})

	s.router = r
}

// requestLogger logs each request at debug level, or warn for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		ev := s.logger.Debug()
		if ww.Status() >= 500 {
			ev = s.logger.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("instance", s.id).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// readingResponse is the body of GET /api/v1/reading and of websocket messages.
type readingResponse struct {
	Type    string          `json:"type,omitempty"`
	Reading *window.Reading `json:"reading,omitempty"`
	Label   string          `json:"label,omitempty"`
	Place   string          `json:"place,omitempty"`
	Stale   bool            `json:"stale"`
	Error   string          `json:"error,omitempty"`
}

func (s *Server) response(u driver.Update) readingResponse {
	resp := readingResponse{Type: "reading", Place: s.placeLabel()}
	if u.HasReading {
		r := u.Reading
		resp.Reading = &r
		resp.Label = r.Remaining.Label()
	}
	if u.Err != nil {
		resp.Type = "error"
		resp.Stale = u.HasReading
		resp.Error = u.Err.Error()
	}
	return resp
}

func (s *Server) current() driver.Update {
	r, ok := s.driver.Last()
	return driver.Update{Reading: r, HasReading: ok, Err: s.driver.Err()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"state":    s.driver.State().String(),
		"instance": s.id,
	})
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	u := s.current()
	if !u.HasReading {
		msg := "no boundary data yet"
		if u.Err != nil {
			msg = u.Err.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	writeJSON(w, http.StatusOK, s.response(u))
}

type boundariesBody struct {
	Times map[string]string `json:"times"`
}

func (s *Server) handleGetBoundaries(w http.ResponseWriter, r *http.Request) {
	set, ok := s.driver.Boundaries()
	if !ok {
		writeError(w, http.StatusNotFound, "no boundary data yet")
		return
	}
	writeJSON(w, http.StatusOK, boundariesBody{Times: set.Map()})
}

func (s *Server) handlePutBoundaries(w http.ResponseWriter, r *http.Request) {
	var body boundariesBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.driver.SetBoundaries(body.Times); err != nil {
		if errors.Is(err, window.ErrMalformedBoundaries) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	set, _ := s.driver.Boundaries()
	writeJSON(w, http.StatusOK, boundariesBody{Times: set.Map()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
