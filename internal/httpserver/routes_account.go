package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
)

func (s *Server) mountAccount() {
	s.r.Get("/api/leaderboard", s.handleLeaderboard)

	s.r.Route("/api/achievements", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleAchievements)
		r.Get("/{id}", s.handleAchievement)
	})

	s.r.Route("/api/settings", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleGetSettings)
		r.Post("/", s.handleUpdateSettings)
	})
}

// handleLeaderboard serves ?page=1&pageSize=10&filter=name.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "pageSize", leaderboard.DefaultPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := s.games.GetLeaderboard(r.Context(), leaderboard.Query{
		Page:     page,
		PageSize: size,
		Filter:   r.URL.Query().Get("filter"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.games.Achievements(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAchievement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.games.Achievement(r.Context(), achievement.ID(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.games.Settings(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in game.Settings
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.games.UpdateSettings(r.Context(), currentUser(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
