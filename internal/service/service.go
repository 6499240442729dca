// internal/service/service.go
//
// Game orchestration.
//
// The Service composes the word dictionary, the game engine, the
// achievement evaluator and the leaderboard updater on top of a Store.
// Every operation that mutates state runs inside one Store.Write, so an
// attempt, its win flag, the achievements it unlocks and the leaderboard
// row it touches are committed together or not at all.
//
// Concurrent submissions on the same game are serialized by the version
// check in Repo.SaveAttempt. A losing writer gets apperr.Conflict and the
// whole read-validate-append sequence is replayed against fresh state.

package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
	"github.com/robalobadob/wordle-league/internal/metrics"
	"github.com/robalobadob/wordle-league/internal/store"
	"github.com/robalobadob/wordle-league/internal/words"
)

// maxWriteAttempts bounds replays of a write that lost a version race.
const maxWriteAttempts = 3

// Game list paging bounds.
const (
	DefaultListSize = 10
	MaxListSize     = 100
)

// GameView is a rendered game plus whatever the last call unlocked.
type GameView struct {
	game.View
	NewAchievements []achievement.Detail `json:"newAchievements"`
}

// Deps are the collaborators of a Service. Store and Words are required.
type Deps struct {
	Store    store.Store
	Words    *words.Dictionary
	Selector daily.Selector
	Cache    leaderboard.Cache
	Metrics  metrics.Recorder
	Log      zerolog.Logger
	// Rand picks words for new games. Seed it for reproducible runs.
	Rand *rand.Rand
	Now  func() time.Time
}

// Service implements the game operations.
type Service struct {
	store     store.Store
	words     *words.Dictionary
	selector  daily.Selector
	cache     leaderboard.Cache
	metrics   metrics.Recorder
	log       zerolog.Logger
	now       func() time.Time
	evaluator *achievement.Evaluator

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New fills unset optional deps with defaults.
func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		d.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if d.Selector == nil {
		seed := d.Rand.Uint64()
		d.Selector = daily.NewRandomSelector(rand.New(rand.NewPCG(seed, seed>>1)))
	}
	if d.Cache == nil {
		d.Cache = leaderboard.NopCache{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}
	return &Service{
		store:     d.Store,
		words:     d.Words,
		selector:  d.Selector,
		cache:     d.Cache,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       d.Now,
		evaluator: achievement.NewEvaluator(d.Now),
		rng:       d.Rand,
	}
}

// write runs fn in a transaction, replaying it when a version check fails.
func (s *Service) write(ctx context.Context, op string, fn func(store.Repo) error) error {
	var err error
	for i := 0; i < maxWriteAttempts; i++ {
		err = s.store.Write(ctx, fn)
		if !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		s.metrics.WriteConflict()
		s.log.Debug().Str("op", op).Int("try", i+1).Err(err).Msg("write conflict, retrying")
	}
	return err
}

func (s *Service) intN(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

// randomWord draws a word, optionally restricted to a category name.
func (s *Service) randomWord(ctx context.Context, r store.Repo, category string) (game.Word, error) {
	var catID int64
	if category != "" {
		c, err := r.CategoryByName(ctx, category)
		if err != nil {
			return game.Word{}, err
		}
		catID = c.ID
	}
	n, err := r.CountWords(ctx, catID)
	if err != nil {
		return game.Word{}, fmt.Errorf("count words: %w", err)
	}
	if n == 0 {
		return game.Word{}, apperr.New(apperr.NotFound, "no words available")
	}
	return r.WordAt(ctx, catID, s.intN(n))
}

// ------------------------------- games -------------------------------------

// CreateNewGame starts a game on a random word with explicit flags.
// An empty category draws from every word.
func (s *Service) CreateNewGame(ctx context.Context, userID string, hardMode, hints bool, category string) (GameView, error) {
	var g *game.Game
	err := s.store.Write(ctx, func(r store.Repo) error {
		w, err := s.randomWord(ctx, r, category)
		if err != nil {
			return err
		}
		g = &game.Game{
			UserID:    userID,
			WordID:    w.ID,
			HardMode:  hardMode,
			Hints:     hints,
			CreatedAt: s.now(),
		}
		if err := r.CreateGame(ctx, g); err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		g.Word, g.CategoryID, g.Category = w.Text, w.CategoryID, w.Category
		return nil
	})
	if err != nil {
		return GameView{}, err
	}
	s.metrics.GameStarted(false)
	s.log.Info().Str("user", userID).Int64("game", g.ID).Bool("hard", hardMode).Bool("hints", hints).Msg("game created")
	return view(g, nil), nil
}

// StartGame starts a game stamped with the user's current settings.
func (s *Service) StartGame(ctx context.Context, userID, category string) (GameView, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return GameView{}, err
	}
	return s.CreateNewGame(ctx, userID, st.HardMode, st.ShowHints, category)
}

// GetGame returns one of the user's games.
func (s *Service) GetGame(ctx context.Context, userID string, gameID int64) (GameView, error) {
	var g *game.Game
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		g, err = r.Game(ctx, gameID, userID)
		return err
	})
	if err != nil {
		return GameView{}, err
	}
	return view(g, nil), nil
}

// ListGames returns the user's games, newest first.
func (s *Service) ListGames(ctx context.Context, userID string, skip, take int) ([]GameView, error) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = DefaultListSize
	}
	if take > MaxListSize {
		take = MaxListSize
	}
	var games []*game.Game
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		games, err = r.ListGames(ctx, userID, skip, take)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]GameView, 0, len(games))
	for _, g := range games {
		out = append(out, view(g, nil))
	}
	return out, nil
}

// SubmitAttempt plays guess on the user's game.
//
// The guess is validated against the dictionary before the game is loaded.
// Achievements are evaluated after every accepted attempt; the leaderboard
// is updated once, by the attempt that ends the game.
func (s *Service) SubmitAttempt(ctx context.Context, gameID int64, guess, userID string) (GameView, error) {
	guess = game.Normalize(guess)
	if !s.words.IsValid(guess) {
		s.metrics.AttemptSubmitted(metrics.OutcomeInvalidWord)
		return GameView{}, apperr.New(apperr.InvalidWord, "%q is not in the word list", guess)
	}

	var (
		g        *game.Game
		unlocked []achievement.Detail
	)
	err := s.write(ctx, "submit_attempt", func(r store.Repo) error {
		var err error
		if g, err = r.Game(ctx, gameID, userID); err != nil {
			return err
		}
		if _, err := g.Apply(guess, s.now()); err != nil {
			return err
		}
		if err := r.SaveAttempt(ctx, g); err != nil {
			return err
		}
		if unlocked, err = s.evaluator.Update(ctx, r, userID); err != nil {
			return fmt.Errorf("update achievements: %w", err)
		}
		if g.Terminal() {
			if _, err := leaderboard.RecordGameEnd(ctx, r, userID, g.Won, g.HardMode, g.Hints); err != nil {
				return fmt.Errorf("update leaderboard: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.AttemptSubmitted(attemptOutcome(err))
		return GameView{}, err
	}

	s.metrics.AttemptSubmitted(metrics.OutcomeAccepted)
	for _, a := range unlocked {
		s.metrics.AchievementUnlocked(a.Name)
		s.log.Info().Str("user", userID).Str("achievement", a.Name).Msg("achievement unlocked")
	}
	if g.Terminal() {
		s.cache.Invalidate(ctx)
		s.metrics.GameFinished(g.Won, len(g.Attempts))
		s.log.Info().Str("user", userID).Int64("game", gameID).Bool("won", g.Won).
			Int("attempts", len(g.Attempts)).Msg("game finished")
	}
	return view(g, unlocked), nil
}

func attemptOutcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.InvalidWord:
		return metrics.OutcomeInvalidWord
	case apperr.GameFinished:
		return metrics.OutcomeGameFinished
	default:
		return metrics.OutcomeError
	}
}

func view(g *game.Game, unlocked []achievement.Detail) GameView {
	if unlocked == nil {
		unlocked = []achievement.Detail{}
	}
	return GameView{View: game.NewView(g), NewAchievements: unlocked}
}

// WordStats reports dictionary sizes.
func (s *Service) WordStats() (answers, allowed int) { return s.words.Stats() }
