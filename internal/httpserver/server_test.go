package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
	"github.com/robalobadob/wordle-league/internal/metrics"
	"github.com/robalobadob/wordle-league/internal/service"
	"github.com/robalobadob/wordle-league/internal/store"
	"github.com/robalobadob/wordle-league/internal/words"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	h     http.Handler
	store store.Store
	clock *testClock
}

func newHarness(t *testing.T, perMinute int) *harness {
	t.Helper()
	dict, err := words.Load("", "")
	require.NoError(t, err)
	st := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), st, dict))

	clk := &testClock{t: time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)}
	games := service.New(service.Deps{
		Store: st,
		Words: dict,
		Rand:  rand.New(rand.NewPCG(7, 7)),
		Now:   clk.Now,
		Log:   zerolog.Nop(),
	})
	authSvc := auth.NewService(store.Users(st), auth.Config{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
	}).WithClock(clk.Now)

	srv := New(Deps{
		Games:   games,
		Auth:    authSvc,
		Metrics: metrics.New("wordle"),
		Health:  func(context.Context) error { return nil },
		Log:     zerolog.Nop(),
		Opts:    Options{RateLimitPerMinute: perMinute},
	})
	return &harness{h: srv.Handler(), store: st, clock: clk}
}

// do sends body as-is when it is a string, JSON-encoded otherwise.
func (h *harness) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type session struct {
	Token    string        `json:"token"`
	User     auth.User     `json:"user"`
	Settings game.Settings `json:"settings"`
}

func newCredentials() auth.RegisterInput {
	return auth.RegisterInput{
		Username: "player_" + gofakeit.LetterN(8),
		Email:    strings.ToLower(gofakeit.LetterN(10)) + "@example.com",
		Password: gofakeit.Password(true, true, true, false, false, 12),
	}
}

func (h *harness) register(t *testing.T) (session, auth.RegisterInput) {
	t.Helper()
	in := newCredentials()
	rec := h.do(t, http.MethodPost, "/api/auth/register", in, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session](t, rec), in
}

func (h *harness) target(t *testing.T, userID string, gameID int64) string {
	t.Helper()
	var w string
	require.NoError(t, h.store.Read(context.Background(), func(r store.Repo) error {
		g, err := r.Game(context.Background(), gameID, userID)
		if err != nil {
			return err
		}
		w = g.Word
		return nil
	}))
	return w
}

func miss(target string) string {
	if target == "CRANE" {
		return "SLATE"
	}
	return "CRANE"
}

func TestDiagnostics(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = h.do(t, http.MethodGet, "/debug/words", nil, "")
	stats := decode[map[string]int](t, rec)
	assert.Equal(t, 52, stats["answers"])
	assert.Greater(t, stats["allowed"], stats["answers"])

	rec = h.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodOptions, "/api/auth/login", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wordle_http_request_duration_seconds_count{method="GET",route="/health",status="200"}`)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t, 0)
	sess, in := h.register(t)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, in.Username, sess.User.Username)
	assert.Equal(t, game.DefaultSettings(), sess.Settings)

	rec := h.do(t, http.MethodGet, "/api/auth/me", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[authUser](t, rec)
	assert.Equal(t, sess.User.ID, me.ID)

	// The cookie works as well as the header.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "wordle_token", Value: sess.Token})
	cookieRec := httptest.NewRecorder()
	h.h.ServeHTTP(cookieRec, req)
	assert.Equal(t, http.StatusOK, cookieRec.Code)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/auth/me", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/auth/me", nil, "garbage").Code)

	rec = h.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": in.Email, "password": in.Password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[session](t, rec).Token)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "wordle_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = h.do(t, http.MethodPost, "/api/auth/login", map[string]string{"login": in.Username, "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/register", in, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	bad := newCredentials()
	bad.Password = "short"
	rec = h.do(t, http.MethodPost, "/api/auth/register", bad, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/register", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Negative(t, rec.Result().Cookies()[0].MaxAge)
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, 0)
	sess, _ := h.register(t)

	rec := h.do(t, http.MethodGet, "/api/auth/refresh", nil, sess.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.clock.Advance(30 * time.Hour)
	rec = h.do(t, http.MethodGet, "/api/auth/refresh", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decode[auth.Token](t, rec)
	assert.NotEqual(t, sess.Token, tok.Value)
	assert.True(t, tok.ExpiresAt.After(h.clock.Now().Add(47*time.Hour)))

	h.clock.Advance(48 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/auth/me", nil, sess.Token).Code)
}

func TestGameFlow(t *testing.T) {
	h := newHarness(t, 0)
	sess, _ := h.register(t)
	other, _ := h.register(t)

	rec := h.do(t, http.MethodPost, "/api/games", map[string]any{"hints": true, "category": "Nature"}, sess.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gv := decode[service.GameView](t, rec)
	assert.Equal(t, "/api/games/"+itoa(gv.ID), rec.Header().Get("Location"))
	assert.Equal(t, "Nature", gv.Category)
	assert.Equal(t, game.StatusInProgress, gv.Status)
	target := h.target(t, sess.User.ID, gv.ID)
	path := "/api/game/" + itoa(gv.ID)

	rec = h.do(t, http.MethodPost, path+"/attempt", `"QQQQQ"`, sess.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_word", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPost, path+"/attempt", `"`+strings.ToLower(miss(target))+`"`, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gv = decode[service.GameView](t, rec)
	require.Len(t, gv.Attempts, 1)
	assert.Len(t, gv.Attempts[0].LettersState, game.WordLength)
	assert.Empty(t, gv.Word)

	rec = h.do(t, http.MethodPost, path+"/attempt", map[string]string{"attempt": target}, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gv = decode[service.GameView](t, rec)
	assert.Equal(t, game.StatusWon, gv.Status)
	assert.Equal(t, target, gv.Word)
	require.NotEmpty(t, gv.NewAchievements)
	assert.Equal(t, achievement.FirstSolve, gv.NewAchievements[0].ID)

	rec = h.do(t, http.MethodPost, path+"/attempt", `"`+target+`"`, sess.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "game_finished", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPost, path+"/attempt", `{}`, sess.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, path, nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[service.GameView](t, rec).Attempts, 2)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, path, nil, other.Token).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, path+"/attempt", `"CRANE"`, other.Token).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/game/abc", nil, sess.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, path, nil, "").Code)

	rec = h.do(t, http.MethodGet, "/api/game/new_game", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/game/games?page=1&pageSize=1", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]service.GameView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, game.StatusInProgress, list[0].Status)
	rec = h.do(t, http.MethodGet, "/api/games?page=2&pageSize=1", nil, sess.Token)
	list = decode[[]service.GameView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, gv.ID, list[0].ID)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/games?page=x", nil, sess.Token).Code)

	rec = h.do(t, http.MethodGet, "/api/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]leaderboard.View](t, rec)
	require.Len(t, board, 1)
	assert.Equal(t, sess.User.Username, board[0].Username)
	assert.Equal(t, 5, board[0].Points)

	rec = h.do(t, http.MethodGet, "/api/leaderboard?filter=nobody-matches", nil, "")
	assert.Empty(t, decode[[]leaderboard.View](t, rec))
}

func TestAchievementsAndSettings(t *testing.T) {
	h := newHarness(t, 0)
	sess, _ := h.register(t)

	rec := h.do(t, http.MethodGet, "/api/achievements", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]achievement.Detail](t, rec)
	require.Len(t, list, len(achievement.Catalog))
	assert.False(t, *list[0].Achieved)

	rec = h.do(t, http.MethodGet, "/api/achievements/2", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[achievement.Detail](t, rec)
	assert.Equal(t, "First Try!", d.Name)
	assert.Equal(t, 0.0, *d.PercentOfUsers)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/achievements/99", nil, sess.Token).Code)

	rec = h.do(t, http.MethodPost, "/api/settings", game.Settings{HardMode: true, DarkMode: true}, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/settings", nil, sess.Token)
	assert.Equal(t, game.Settings{HardMode: true, DarkMode: true}, decode[game.Settings](t, rec))

	rec = h.do(t, http.MethodPost, "/api/game/new_game", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	gv := decode[service.GameView](t, rec)
	assert.True(t, gv.HardMode)
	assert.False(t, gv.Hints)
	assert.Empty(t, gv.Category)
}

func TestDailyRoutes(t *testing.T) {
	h := newHarness(t, 0)
	sess, _ := h.register(t)

	rec := h.do(t, http.MethodGet, "/api/dailychallenge/standings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[service.Standings](t, rec).Rows)

	rec = h.do(t, http.MethodGet, "/api/dailychallenge", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	dc := decode[game.DailyChallenge](t, rec)
	assert.Equal(t, daily.DateKey(h.clock.Now()), dc.Date)
	assert.NotContains(t, rec.Body.String(), "word")

	rec = h.do(t, http.MethodGet, "/api/dailychallenge/game", nil, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	gv := decode[service.GameView](t, rec)
	assert.Equal(t, dc.ID, gv.DailyChallengeID)
	assert.False(t, gv.HardMode)
	assert.False(t, gv.Hints)

	rec = h.do(t, http.MethodGet, "/api/game/daily_challenge", nil, sess.Token)
	assert.Equal(t, gv.ID, decode[service.GameView](t, rec).ID)
	rec = h.do(t, http.MethodGet, "/api/dailychallenge/game?id="+itoa(dc.ID), nil, sess.Token)
	assert.Equal(t, gv.ID, decode[service.GameView](t, rec).ID)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/dailychallenge/game?id=999", nil, sess.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/dailychallenge/game", nil, "").Code)

	target := h.target(t, sess.User.ID, gv.ID)
	rec = h.do(t, http.MethodPost, "/api/game/"+itoa(gv.ID)+"/attempt", `"`+target+`"`, sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/dailychallenge/standings?limit=5", nil, "")
	st := decode[service.Standings](t, rec)
	require.Len(t, st.Rows, 1)
	assert.Equal(t, sess.User.Username, st.Rows[0].Username)
	assert.Equal(t, 1, st.Rows[0].Guesses)
}

func TestRateLimitOnLogin(t *testing.T) {
	h := newHarness(t, 2)
	body := map[string]string{"login": "ghost", "password": "whatever-123"}

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/auth/login", body, "").Code)
	rec := h.do(t, http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Unlimited routes are unaffected.
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health", nil, "").Code)
}

func TestIPLimiterDropsIdleClients(t *testing.T) {
	l := newIPLimiter(60)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }
	for i := 0; i < 30; i++ {
		require.True(t, l.allow("1.2.3.4"))
	}
	assert.False(t, l.allow("1.2.3.4"))
	assert.True(t, l.allow("5.6.7.8"))

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, l.allow("9.9.9.9"))
	assert.Len(t, l.limiters, 1)
	assert.Nil(t, newIPLimiter(0))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
