package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/service"
)

// newGameReq is the optional body of a new-game request. Unset flags come
// from the user's settings.
type newGameReq struct {
	Category string `json:"category"`
	HardMode *bool  `json:"hardMode"`
	Hints    *bool  `json:"hints"`
}

type attemptReq struct {
	Attempt string `json:"attempt"`
}

// mountGames registers the game routes under both /api/game and /api/games.
func (s *Server) mountGames() {
	s.r.Route("/api/game", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/new_game", s.handleNewGame(http.StatusOK))
		r.Post("/new_game", s.handleNewGame(http.StatusOK))
		r.Get("/daily_challenge", s.handleTodayGame)
		r.Get("/games", s.handleListGames)
		r.With(s.rateLimit).Post("/{gameId}/attempt", s.handleAttempt)
		r.Get("/{gameId}", s.handleGetGame)
	})
	s.r.Route("/api/games", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/", s.handleNewGame(http.StatusCreated))
		r.Get("/", s.handleListGames)
		r.Get("/daily-challenge", s.handleTodayGame)
		r.With(s.rateLimit).Post("/{gameId}/attempt", s.handleAttempt)
		r.Get("/{gameId}", s.handleGetGame)
	})
}

func (s *Server) handleNewGame(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := currentUser(r)
		req := newGameReq{Category: r.URL.Query().Get("category")}
		if r.Method == http.MethodPost {
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}

		var (
			gv  service.GameView
			err error
		)
		if req.HardMode == nil && req.Hints == nil {
			gv, err = s.games.StartGame(r.Context(), me.ID, req.Category)
		} else {
			st, serr := s.games.Settings(r.Context(), me.ID)
			if serr != nil {
				writeError(w, r, serr)
				return
			}
			hard, hints := st.HardMode, st.ShowHints
			if req.HardMode != nil {
				hard = *req.HardMode
			}
			if req.Hints != nil {
				hints = *req.Hints
			}
			gv, err = s.games.CreateNewGame(r.Context(), me.ID, hard, hints, req.Category)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		if status == http.StatusCreated {
			w.Header().Set("Location", "/api/games/"+strconv.FormatInt(gv.ID, 10))
		}
		writeJSON(w, status, gv)
	}
}

func (s *Server) handleTodayGame(w http.ResponseWriter, r *http.Request) {
	gv, err := s.games.TodayGame(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gv)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "gameId"), "gameId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	gv, err := s.games.GetGame(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gv)
}

// handleListGames pages the caller's games: ?page=1&pageSize=10.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "pageSize", service.DefaultListSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if size < 1 || size > service.MaxListSize {
		size = service.DefaultListSize
	}
	games, err := s.games.ListGames(r.Context(), currentUser(r).ID, (page-1)*size, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// handleAttempt accepts either a bare JSON string or {"attempt": "..."}.
func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "gameId"), "gameId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	guess, err := readAttempt(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	gv, err := s.games.SubmitAttempt(r.Context(), id, guess, currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gv)
}

func readAttempt(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<10))
	if err != nil {
		return "", err
	}
	var word string
	if err := json.Unmarshal(raw, &word); err == nil {
		return word, nil
	}
	var req attemptReq
	if err := json.Unmarshal(raw, &req); err != nil || req.Attempt == "" {
		return "", apperr.New(apperr.Invalid, "body must be a word or {\"attempt\": word}")
	}
	return req.Attempt, nil
}
