// Package api exposes the briefing engine over HTTP: a batch endpoint, an
// SSE streaming endpoint, source suggestion, and health. Routing is a plain
// ServeMux; authentication is an optional bearer-token middleware.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/newsfold/newsfold/briefing"
	"github.com/newsfold/newsfold/persist"
	"github.com/newsfold/newsfold/topic"
)

// maxRequestBody limits briefing request bodies.
const maxRequestBody = 1 << 20 // 1 MB

// maxSources caps how many sources one briefing request may carry.
const maxSources = 25

// Engine is the slice of the briefing engine the API consumes.
type Engine interface {
	Run(ctx context.Context, userID string, sources []topic.Source) ([]topic.SummaryResult, error)
	Stream(ctx context.Context, userID string, sources []topic.Source) <-chan briefing.Event
}

// Suggester proposes news sources for a subject.
type Suggester interface {
	SuggestSources(ctx context.Context, subject string) ([]topic.Source, error)
}

// HistoryStore retrieves previously persisted briefings.
type HistoryStore interface {
	Latest(ctx context.Context, userID string) (*persist.Record, error)
}

// Server handles the briefing HTTP API.
type Server struct {
	engine    Engine
	suggester Suggester
	history   HistoryStore
	auth      *Authenticator
	logger    *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSuggester enables the source suggestion endpoint.
func WithSuggester(s Suggester) ServerOption {
	return func(srv *Server) {
		srv.suggester = s
	}
}

// WithHistory enables the latest-briefing endpoint.
func WithHistory(h HistoryStore) ServerOption {
	return func(srv *Server) {
		srv.history = h
	}
}

// WithAuthenticator enables bearer-token authentication on all briefing
// endpoints.
func WithAuthenticator(a *Authenticator) ServerOption {
	return func(srv *Server) {
		srv.auth = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// NewServer creates a Server around the briefing engine.
func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHTTPHandlers registers the API endpoints on mux.
func (s *Server) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/briefings", s.withAuth(s.handleBriefing))
	mux.HandleFunc("POST /api/briefings/stream", s.withAuth(s.handleBriefingStream))
	mux.HandleFunc("GET /api/briefings/latest", s.withAuth(s.handleLatest))
	mux.HandleFunc("GET /api/sources/suggest", s.withAuth(s.handleSuggest))
}

// BriefingRequest is the request body for the briefing endpoints.
type BriefingRequest struct {
	Sources []topic.Source `json:"sources"`
}

// BriefingResponse is the batch endpoint response.
type BriefingResponse struct {
	Results []topic.SummaryResult `json:"results"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBriefing handles POST /api/briefings: run to completion, answer with
// the full ordered result set.
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBriefingRequest(w, r)
	if !ok {
		return
	}

	userID := userFrom(r.Context())
	results, err := s.engine.Run(r.Context(), userID, req.Sources)
	if err != nil {
		s.logger.Error("Briefing run failed", "user_id", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, BriefingResponse{Results: results})
}

// handleBriefingStream handles POST /api/briefings/stream: run the briefing
// while relaying its event stream as SSE. The stream carries exactly one
// terminal event; summaries delivered before a late failure stay delivered.
func (s *Server) handleBriefingStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBriefingRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	userID := userFrom(r.Context())
	for event := range s.engine.Stream(r.Context(), userID, req.Sources) {
		if err := event.WriteSSE(w); err != nil {
			// Client went away; the run's context cancellation tears the
			// engine down.
			s.logger.Debug("SSE write failed", "user_id", userID, "error", err)
			return
		}
		flusher.Flush()
	}
}

// handleLatest handles GET /api/briefings/latest.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "briefing history is not configured")
		return
	}

	userID := userFrom(r.Context())
	record, err := s.history.Latest(r.Context(), userID)
	if err != nil {
		s.logger.Error("History lookup failed", "user_id", userID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load briefing history")
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "no briefings yet")
		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

// SuggestResponse is the source suggestion response.
type SuggestResponse struct {
	Sources []topic.Source `json:"sources"`
}

// handleSuggest handles GET /api/sources/suggest?topic=<subject>.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		s.writeError(w, http.StatusNotFound, "source suggestion is not configured")
		return
	}

	subject := r.URL.Query().Get("topic")
	if subject == "" {
		s.writeError(w, http.StatusBadRequest, "topic query parameter is required")
		return
	}

	sources, err := s.suggester.SuggestSources(r.Context(), subject)
	if err != nil {
		s.logger.Error("Source suggestion failed", "subject", subject, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to suggest sources")
		return
	}

	s.writeJSON(w, http.StatusOK, SuggestResponse{Sources: sources})
}

// decodeBriefingRequest parses and validates the shared briefing request
// body, writing the error response itself on failure.
func (s *Server) decodeBriefingRequest(w http.ResponseWriter, r *http.Request) (BriefingRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req BriefingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if len(req.Sources) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one source is required")
		return req, false
	}
	if len(req.Sources) > maxSources {
		s.writeError(w, http.StatusBadRequest, "too many sources")
		return req, false
	}
	for _, src := range req.Sources {
		if src.URL == "" {
			s.writeError(w, http.StatusBadRequest, "every source needs a url")
			return req, false
		}
	}
	return req, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
