package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pingpoint/internal/config"
	"pingpoint/internal/domain"
	"pingpoint/internal/metrics"
)

// Inventory is the part of the reconciliation engine the API exposes
type Inventory interface {
	ListDevices() []domain.Device
	ListEvents() []domain.Event
	UpdateUserFields(ctx context.Context, mac, friendlyName, notes string, alertOnOffline bool) (domain.Device, error)
}

// ScanTrigger starts a background scan of a named source
type ScanTrigger interface {
	TriggerScan(name string) error
	Sources() []string
}

// ConfigStore reads and replaces the running configuration
type ConfigStore interface {
	Get() *config.Config
	Save(cfg *config.Config) error
}

// Handler serves the PingPoint HTTP API
type Handler struct {
	inv     Inventory
	scans   ScanTrigger
	cfg     ConfigStore
	events  http.Handler
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithEvents serves an SSE stream at /events
func WithEvents(events http.Handler) Option {
	return func(h *Handler) { h.events = events }
}

// WithMetrics records request metrics and serves /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New creates a handler
func New(inv Inventory, scans ScanTrigger, cfg ConfigStore, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		inv:    inv,
		scans:  scans,
		cfg:    cfg,
		logger: logger.With().Str("component", "http").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Router builds the route tree
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	if h.events != nil {
		r.Method(http.MethodGet, "/events", h.events)
	}

	// The SSE stream is long-lived, so only the API gets a request timeout
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Get("/devices", h.handleListDevices)
		r.Put("/device/{mac}", h.handleUpdateDevice)
		r.Get("/events", h.handleListEvents)
		r.Post("/scan/{source}", h.handleTriggerScan)
		r.Get("/export", h.handleExport)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.handleGetConfig)
			r.Put("/", h.handlePutConfig)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		h.metrics.ObserveHTTPRequest(r.Method, routePattern(r), ww.Status(), duration)
		h.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("http_request")
	})
}

// routePattern keeps metric labels bounded by using the matched route, not the raw path
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}
