package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/game"
)

// loginReq accepts the login under any of its historical field names.
type loginReq struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionRes struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.User     `json:"user"`
	Settings  game.Settings `json:"settings"`
}

// mountAuth registers /api/auth/*. Register and login are rate limited.
func (s *Server) mountAuth() {
	s.r.Route("/api/auth", func(r chi.Router) {
		r.With(s.rateLimit).Post("/register", s.handleRegister)
		r.With(s.rateLimit).Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/refresh", s.handleRefresh)
		r.With(s.requireAuth).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, currentUser(r))
		})
	})
}

// handleRegister creates the account and signs the caller in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	login := in.Login
	for _, alt := range []string{in.Email, in.Username} {
		if login == "" {
			login = alt
		}
	}
	u, err := s.auth.Login(r.Context(), login, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, u, http.StatusOK)
}

// startSession issues a token, sets the cookie and returns the user with
// their settings.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u auth.User, status int) {
	tok, err := s.auth.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.games.Settings(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setAuthCookie(w, tok.Value, tok.ExpiresAt)
	writeJSON(w, status, sessionRes{
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		User:      u,
		Settings:  st,
	})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleRefresh swaps a token close to expiry for a fresh one.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tok, err := s.auth.Refresh(r.Context(), s.bearerOrCookie(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setAuthCookie(w, tok.Value, tok.ExpiresAt)
	writeJSON(w, http.StatusOK, tok)
}
