// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
//   - GET /api/dailychallenge            → today's challenge id and date
//   - GET /api/dailychallenge/game       → the caller's game for a challenge
//                                          (?id=, defaults to today)
//   - GET /api/dailychallenge/standings  → today's winners (?limit=, default 20)
//
// Each user has at most one game per challenge; the store enforces it.

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordle-league/internal/daily"
)

func (s *Server) mountDaily() {
	s.r.Route("/api/dailychallenge", func(r chi.Router) {
		r.Get("/", s.handleTodayChallenge)
		r.Get("/standings", s.handleStandings)
		r.With(s.requireAuth).Get("/game", s.handleDailyGame)
	})
}

func (s *Server) handleTodayChallenge(w http.ResponseWriter, r *http.Request) {
	dc, err := s.games.TodayChallenge(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dc)
}

func (s *Server) handleDailyGame(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	if v := r.URL.Query().Get("id"); v != "" {
		id, err := parseID(v, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		gv, err := s.games.GetOrCreateDailyChallengeGame(r.Context(), id, me.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, gv)
		return
	}
	s.handleTodayGame(w, r)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", daily.DefaultStandingsLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit < 1 || limit > 100 {
		limit = daily.DefaultStandingsLimit
	}
	st, err := s.games.DailyStandings(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
