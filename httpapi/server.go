// Package httpapi exposes the engine over HTTP: search, question answering,
// an on-demand sync trigger, and a readiness probe.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/scoutdex/scoutdex"
	"github.com/scoutdex/scoutdex/ingest"
	"github.com/scoutdex/scoutdex/source"
)

// Engine is the part of the scoutdex engine the API serves. It is an
// interface so handlers can be tested without real capabilities.
type Engine interface {
	Search(ctx context.Context, query string, k int) ([]scoutdex.SearchResult, error)
	Ask(ctx context.Context, question string) (*scoutdex.Answer, error)
	Sync(ctx context.Context, fetcher source.Fetcher) (ingest.Report, error)
	Health() scoutdex.Health
}

// Options contains configuration options for the server.
type Options struct {
	// Logger receives request-level logs. Defaults to a no-op.
	Logger *slog.Logger

	// AllowedOrigins configures CORS. Empty allows all origins.
	AllowedOrigins []string

	// SyncTimeout bounds the on-demand sync triggered via the API.
	SyncTimeout time.Duration
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine  Engine
	fetcher source.Fetcher
	logger  *slog.Logger
	opts    Options
	handler http.Handler
}

// NewServer creates the HTTP server over the given engine. fetcher is used
// by the sync endpoint and may be nil to disable it.
func NewServer(engine Engine, fetcher source.Fetcher, optFns ...func(*Options)) *Server {
	opts := Options{SyncTimeout: 10 * time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		engine:  engine,
		fetcher: fetcher,
		logger:  opts.Logger,
		opts:    opts,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/v1/ask", s.handleAsk).Methods(http.MethodPost)
	r.HandleFunc("/v1/sync", s.handleSync).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(r)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Results []scoutdex.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	results, err := s.engine.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if results == nil {
		results = []scoutdex.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	ans, err := s.engine.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil {
		s.writeError(w, r, http.StatusNotImplemented, errors.New("sync endpoint disabled"))
		return
	}

	// Detach from the request context so a closed connection doesn't
	// abandon a half-done cycle.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.SyncTimeout)
	defer cancel()

	report, err := s.engine.Sync(ctx, s.fetcher)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health()
	status := http.StatusOK
	if !h.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}

// writeEngineError maps engine errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var embErr *scoutdex.EmbeddingError
	switch {
	case errors.Is(err, scoutdex.ErrInvalidQuery):
		s.writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, scoutdex.ErrNotReady):
		s.writeError(w, r, http.StatusServiceUnavailable, err)
	case errors.Is(err, scoutdex.ErrSourceUnavailable), errors.As(err, &embErr):
		s.writeError(w, r, http.StatusBadGateway, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.WarnContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", "error", err)
	}
}
