// Package server exposes the retrieval engine over HTTP, including a
// server-sent-events variant of the query endpoint.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"blograg/internal/domain"
	"blograg/internal/usecase"
)

// Server hosts the HTTP API.
type Server struct {
	engine  *usecase.QueryEngine
	indexer *usecase.Indexer
	related *usecase.RelatedResolver
	opts    usecase.QueryOptions
	log     *slog.Logger
}

// New creates a server. opts supplies the default retrieval limit and
// token budget for requests that do not override them.
func New(
	engine *usecase.QueryEngine,
	indexer *usecase.Indexer,
	related *usecase.RelatedResolver,
	opts usecase.QueryOptions,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:  engine,
		indexer: indexer,
		related: related,
		opts:    opts,
		log:     log,
	}
}

// Handler returns the routed handler with request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/query/stream", s.handleQueryStream)
	mux.HandleFunc("GET /api/related", s.handleRelated)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/reindex", s.handleReindex)
	return s.withRequestLog(mux)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		s.log.Info("request", "id", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")
	opts := s.requestOptions(r)

	answer, err := s.engine.Query(r.Context(), question, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	limit := intParam(r, "limit", 0)

	result, err := s.related.Related(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.indexer.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	summary, err := s.indexer.ReindexAll(r.Context(), force, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) requestOptions(r *http.Request) usecase.QueryOptions {
	opts := s.opts
	if limit := intParam(r, "limit", 0); limit > 0 {
		opts.Limit = limit
	}
	if budget := intParam(r, "max_tokens", 0); budget > 0 {
		opts.MaxTokens = budget
	}
	return opts
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case domain.IsRetryable(err):
		status = http.StatusBadGateway
	}
	s.log.Error("request failed", "status", status, "error", err)
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to write response", "error", err)
	}
}
