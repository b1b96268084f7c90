// Package api serves the leaderboard over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vovakirdan/focus/internal/config"
	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/storage"
)

// MaxLimit is the largest page a client may request.
const MaxLimit = 500

// Store is the read side of the score store.
type Store interface {
	TopScores(ctx context.Context, limit int) ([]storage.ScoreEntry, error)
	UserScores(ctx context.Context, userID string, limit int) ([]storage.ScoreEntry, error)
	UserByID(ctx context.Context, id string) (identity.User, error)
	Stats(ctx context.Context, userID string) (storage.Stats, error)
}

// Server handles HTTP requests.
type Server struct {
	store  Store
	limits config.LeaderboardConfig
	logger *log.Logger
	http   *http.Server
}

// NewServer creates a new API server listening on addr.
func NewServer(store Store, addr string, limits config.LeaderboardConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "focus-http",
		})
	}

	s := &Server{
		store:  store,
		limits: limits,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/stats", s.handleStats)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.handleUser)
			r.Get("/scores", s.handleUserScores)
			r.Get("/stats", s.handleUserStats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})

	return r
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting HTTP server", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *Server) Addr() string {
	return s.http.Addr
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("cannot encode response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// parseLimit reads ?limit=N, falling back to def when absent.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", MaxLimit)
	}
	return n, nil
}
