// Package api exposes the read-side HTTP endpoints over stored tokens.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/feed"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/storage"
)

const (
	// DefaultLimit applies when the client does not pass ?limit.
	DefaultLimit = 50
	// MaxLimit caps any client-supplied limit.
	MaxLimit = 500
)

// Server serves token queries from a TokenStore. The optional feed
// client is used only to report connectivity in /stats and /health.
type Server struct {
	store  storage.TokenStore
	feed   feed.Client
	logger *log.Logger
}

// Options configures a Server. Store is required.
type Options struct {
	Store  storage.TokenStore
	Feed   feed.Client
	Logger *log.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("token store is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		store:  opts.Store,
		feed:   opts.Feed,
		logger: opts.Logger,
	}, nil
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("GET /stats", s.instrument("/stats", s.handleStats))
	mux.HandleFunc("GET /tokens/recent", s.instrument("/tokens/recent", s.handleRecent))
	mux.HandleFunc("GET /tokens/search", s.instrument("/tokens/search", s.handleSearch))
	mux.HandleFunc("GET /tokens/{mint}", s.instrument("/tokens/{mint}", s.handleToken))
	return mux
}

// TokensResponse is the JSON envelope for token list endpoints.
type TokensResponse struct {
	Tokens []*domain.TokenRecord `json:"tokens"`
	Count  int                   `json:"count"`
}

// StatsResponse is the JSON response for /stats.
type StatsResponse struct {
	TotalTokens   int64 `json:"totalTokens"`
	FeedConnected bool  `json:"feedConnected"`
}

// HealthResponse is the JSON response for /health.
type HealthResponse struct {
	Status        string `json:"status"`
	FeedConnected bool   `json:"feedConnected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		FeedConnected: s.feedConnected(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Printf("count tokens failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		TotalTokens:   count,
		FeedConnected: s.feedConnected(),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := s.store.GetRecent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("get recent tokens failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, TokensResponse{Tokens: tokens, Count: len(tokens)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := s.store.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Printf("search tokens failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, TokensResponse{Tokens: tokens, Count: len(tokens)})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")

	token, err := s.store.Get(r.Context(), mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.logger.Printf("get token %s failed: %v", mint, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, token)
}

func (s *Server) feedConnected() bool {
	return s.feed != nil && s.feed.IsConnected()
}

// instrument wraps a handler with request counting and latency metrics.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		observability.RecordHTTPRequest(route, rec.status, time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// ErrorResponse is the JSON envelope for error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
