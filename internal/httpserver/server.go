// internal/httpserver/server.go
//
// HTTP server wiring for the Wordle backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, recovery, timeouts,
//     JSON content type, CORS, request metrics).
//   - Public endpoints: "/", "/health", "/metrics", "/debug/words",
//     the leaderboard and the daily standings.
//   - Auth endpoints under /api/auth (register/login rate limited).
//   - Authenticated game, daily challenge, achievement and settings routes.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Tokens are read from "Authorization: Bearer" or the auth cookie.
//   - Handlers stay thin: every rule lives in the service layer and errors
//     are mapped to status codes in one place (respond.go).

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/metrics"
	"github.com/robalobadob/wordle-league/internal/service"
)

// Options are the transport settings.
type Options struct {
	ClientOrigin       string
	CookieName         string
	SecureCookies      bool
	RequestTimeout     time.Duration
	RateLimitPerMinute int
}

// Deps are the collaborators of the server. Metrics and Health are optional.
type Deps struct {
	Games   *service.Service
	Auth    *auth.Service
	Metrics *metrics.Prometheus
	// Health reports backing store reachability for /health.
	Health func(ctx context.Context) error
	Log    zerolog.Logger
	Opts   Options
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	games   *service.Service
	auth    *auth.Service
	metrics *metrics.Prometheus
	health  func(ctx context.Context) error
	log     zerolog.Logger
	opts    Options
	limiter *ipLimiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Opts.CookieName == "" {
		d.Opts.CookieName = "wordle_token"
	}
	if d.Opts.ClientOrigin == "" {
		d.Opts.ClientOrigin = "http://localhost:5173"
	}
	if d.Opts.RequestTimeout <= 0 {
		d.Opts.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		r:       chi.NewRouter(),
		games:   d.Games,
		auth:    d.Auth,
		metrics: d.Metrics,
		health:  d.Health,
		log:     d.Log,
		opts:    d.Opts,
		limiter: newIPLimiter(d.Opts.RateLimitPerMinute),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(s.log))
	s.r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(s.opts.RequestTimeout))
	s.r.Use(s.observe)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "wordle-league",
			"endpoints": []string{"/health", "/api/auth/*", "/api/game/*", "/api/dailychallenge/*", "/api/leaderboard"},
		})
	})
	s.r.Get("/health", s.handleHealth)
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := s.games.WordStats()
		writeJSON(w, http.StatusOK, map[string]int{"answers": a, "allowed": g})
	})
	if s.metrics != nil {
		s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.mountAuth()
	s.mountGames()
	s.mountDaily()
	s.mountAccount()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: r.URL.Path})
	})
	return s
}

// Handler exposes the router (useful for tests).
func (s *Server) Handler() http.Handler { return s.r }

// Start serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("health check")
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}
