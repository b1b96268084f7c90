package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vovakirdan/focus/internal/identity"
	"github.com/vovakirdan/focus/internal/storage"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// LeaderboardResponse is a page of ranked scores.
type LeaderboardResponse struct {
	Scores []storage.ScoreEntry `json:"scores"`
	Limit  int                  `json:"limit"`
}

// UserResponse describes a stored player.
type UserResponse struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// UserScoresResponse is a player's personal board.
type UserScoresResponse struct {
	User   UserResponse         `json:"user"`
	Scores []storage.ScoreEntry `json:"scores"`
	Limit  int                  `json:"limit"`
}

// StatsResponse wraps aggregated statistics.
type StatsResponse struct {
	User  *UserResponse `json:"user,omitempty"`
	Stats storage.Stats `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.limits.GlobalLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scores, err := s.store.TopScores(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, LeaderboardResponse{Scores: nonNil(scores), Limit: limit})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context(), "")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatsResponse{Stats: st})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleUserScores(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.limits.PersonalLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}

	scores, err := s.store.UserScores(r.Context(), u.ID, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, UserScoresResponse{
		User:   toUserResponse(u),
		Scores: nonNil(scores),
		Limit:  limit,
	})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	u, ok := s.lookupUser(w, r)
	if !ok {
		return
	}

	st, err := s.store.Stats(r.Context(), u.ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	resp := toUserResponse(u)
	s.writeJSON(w, http.StatusOK, StatsResponse{User: &resp, Stats: st})
}

// lookupUser resolves {userID} and writes the error reply itself when it fails.
func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	userID := chi.URLParam(r, "userID")
	u, err := s.store.UserByID(r.Context(), userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "user not found")
		return identity.User{}, false
	case err != nil:
		s.internalError(w, r, err)
		return identity.User{}, false
	}
	return u, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func toUserResponse(u identity.User) UserResponse {
	return UserResponse{ID: u.ID, Nickname: u.Nickname}
}

func nonNil(s []storage.ScoreEntry) []storage.ScoreEntry {
	if s == nil {
		return []storage.ScoreEntry{}
	}
	return s
}
