// SPDX-License-Identifier: MIT

// Package api exposes the daemon's operational HTTP surface: health and
// readiness probes, Prometheus metrics and the subscription management
// endpoints backed by the registry.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/registry"
	"github.com/ManuGH/auraxd/internal/stream"
)

// StatusSource reports a stream connector's current state for readiness.
type StatusSource interface {
	Status() stream.Status
}

// Server serves the ops API. It owns no listener; callers mount Handler on
// an http.Server they control.
type Server struct {
	registry registry.Registry
	sources  []StatusSource
	logger   zerolog.Logger

	rateLimit int
	rateWin   time.Duration
}

// Option customises the server.
type Option func(*Server)

// WithRateLimit overrides the per-IP request limit for the management
// endpoints.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateWin = window
	}
}

// NewServer wires the ops API against the given registry and connectors.
func NewServer(reg registry.Registry, sources []StatusSource, opts ...Option) *Server {
	s := &Server{
		registry:  reg,
		sources:   sources,
		logger:    log.WithComponent("api"),
		rateLimit: 60,
		rateWin:   time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.rateLimit,
			s.rateWin,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
		r.Post("/subscriptions", s.handleSubscribe)
		r.Delete("/subscriptions", s.handleUnsubscribe)
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Delete("/destinations/{id}", s.handlePruneDestination)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports 200 once at least one connector holds a live stream,
// 503 otherwise. The per-platform detail is always included.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]stream.Status, 0, len(s.sources))
	ready := false
	for _, src := range s.sources {
		st := src.Status()
		if st.Connected {
			ready = true
		}
		statuses = append(statuses, st)
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"ready":      ready,
		"connectors": statuses,
	})
}

type subscriptionRequest struct {
	SubjectKey    string `json:"subject_key"`
	DestinationID string `json:"destination_id"`
	Platform      string `json:"platform,omitempty"`
}

func (r subscriptionRequest) validate() string {
	switch {
	case strings.TrimSpace(r.SubjectKey) == "":
		return "subject_key is required"
	case strings.TrimSpace(r.DestinationID) == "":
		return "destination_id is required"
	}
	return ""
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	sub := registry.Subscription{
		SubjectKey:    req.SubjectKey,
		DestinationID: req.DestinationID,
		Platform:      req.Platform,
	}
	err := s.registry.Subscribe(r.Context(), sub)
	switch {
	case errors.Is(err, registry.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, "already_subscribed", "this destination already follows the subject")
	case err != nil:
		s.logger.Error().Err(err).
			Str(log.FieldSubjectKey, req.SubjectKey).
			Str(log.FieldEvent, "api.subscribe_failed").
			Msg("subscribe failed")
		writeError(w, http.StatusInternalServerError, "internal", "subscription could not be stored")
	default:
		s.logger.Info().
			Str(log.FieldSubjectKey, req.SubjectKey).
			Str(log.FieldDestinationID, req.DestinationID).
			Str(log.FieldEvent, "api.subscribed").
			Msg("subscription created")
		writeJSON(w, http.StatusCreated, sub)
	}
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	err := s.registry.Unsubscribe(r.Context(), req.SubjectKey, req.DestinationID)
	switch {
	case errors.Is(err, registry.ErrNotSubscribed):
		writeError(w, http.StatusNotFound, "not_subscribed", "no such subscription")
	case err != nil:
		s.logger.Error().Err(err).
			Str(log.FieldSubjectKey, req.SubjectKey).
			Str(log.FieldEvent, "api.unsubscribe_failed").
			Msg("unsubscribe failed")
		writeError(w, http.StatusInternalServerError, "internal", "subscription could not be removed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "subject query parameter is required")
		return
	}

	subs, err := s.registry.ListBySubject(r.Context(), subject)
	if err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldSubjectKey, subject).
			Str(log.FieldEvent, "api.list_failed").
			Msg("subscription list failed")
		writeError(w, http.StatusInternalServerError, "internal", "subscriptions could not be listed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_key":   subject,
		"subscriptions": subs,
	})
}

func (s *Server) handlePruneDestination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.registry.PruneDestination(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldDestinationID, id).
			Str(log.FieldEvent, "api.prune_failed").
			Msg("destination prune failed")
		writeError(w, http.StatusInternalServerError, "internal", "destination could not be pruned")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"destination_id": id,
		"removed":        removed,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail string) {
	writeJSON(w, code, map[string]string{
		"error":  kind,
		"detail": detail,
	})
}
