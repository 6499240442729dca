// internal/store/store.go
//
// Persistence layer for games, words, users and aggregates.
//
// A Store hands out a Repo inside Read or Write. Write runs its callback as a
// single transaction: either every change made through the Repo is committed
// or none is. Games carry a version; SaveAttempt fails with apperr.Conflict
// when the stored version moved since the game was loaded.
//
// Implementations:
//   - SQLite (durable, migrations embedded).
//   - Memory (process-local, copy-on-write transactions).

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
	"github.com/robalobadob/wordle-league/internal/words"
)

// Store opens read or write scopes over the data.
type Store interface {
	// Read runs fn against a read-only view.
	Read(ctx context.Context, fn func(Repo) error) error
	// Write runs fn in one transaction, rolled back if fn returns an error.
	Write(ctx context.Context, fn func(Repo) error) error
	Close() error
}

// Repo is every operation available inside a scope.
type Repo interface {
	achievement.Repository
	leaderboard.Repository

	// Catalog data.
	UpsertCategory(ctx context.Context, c game.Category) (int64, error)
	UpsertWord(ctx context.Context, text string, categoryID int64) (int64, error)
	UpsertAchievement(ctx context.Context, a achievement.Achievement) error
	Categories(ctx context.Context) ([]game.Category, error)
	CategoryByName(ctx context.Context, name string) (game.Category, error)
	// CountWords and WordAt filter by category unless categoryID is zero.
	CountWords(ctx context.Context, categoryID int64) (int, error)
	WordAt(ctx context.Context, categoryID int64, offset int) (game.Word, error)

	// Accounts.
	CreateUser(ctx context.Context, u auth.User, s game.Settings) error
	UserByID(ctx context.Context, id string) (auth.User, error)
	UserByLogin(ctx context.Context, login string) (auth.User, error)
	Settings(ctx context.Context, userID string) (game.Settings, error)
	SaveSettings(ctx context.Context, userID string, s game.Settings) error

	// Games.
	CreateGame(ctx context.Context, g *game.Game) error
	Game(ctx context.Context, id int64, userID string) (*game.Game, error)
	GameForChallenge(ctx context.Context, challengeID int64, userID string) (*game.Game, error)
	ListGames(ctx context.Context, userID string, skip, take int) ([]*game.Game, error)
	// SaveAttempt persists the last attempt of g and its won flag, guarded
	// by g.Version. On success the attempt id and version are updated in g.
	SaveAttempt(ctx context.Context, g *game.Game) error

	// Daily challenges.
	DailyChallengeByDate(ctx context.Context, date string) (game.DailyChallenge, error)
	DailyChallenge(ctx context.Context, id int64) (game.DailyChallenge, error)
	// EnsureDailyChallenge creates the challenge for date unless one exists,
	// and returns whichever is stored.
	EnsureDailyChallenge(ctx context.Context, date string, wordID int64) (game.DailyChallenge, error)
	DailyStandings(ctx context.Context, challengeID int64, limit int) ([]daily.Standing, error)

	// Leaderboard pages, already ordered.
	LeaderboardPage(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, error)
}

var errReadOnly = errors.New("store: write attempted in read scope")

// Seed loads categories, answer words and the achievement catalog.
// Running it again is harmless.
func Seed(ctx context.Context, s Store, dict *words.Dictionary) error {
	return s.Write(ctx, func(r Repo) error {
		ids := make(map[string]int64)
		for _, c := range dict.Categories() {
			id, err := r.UpsertCategory(ctx, c)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			ids[c.Name] = id
		}
		for _, e := range dict.Answers() {
			if _, err := r.UpsertWord(ctx, e.Text, ids[e.Category]); err != nil {
				return fmt.Errorf("seed word %q: %w", e.Text, err)
			}
		}
		for _, a := range achievement.Catalog {
			if err := r.UpsertAchievement(ctx, a); err != nil {
				return fmt.Errorf("seed achievement %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// standingFromGame derives a standing row from a won daily game.
func standingFromGame(username string, g *game.Game) daily.Standing {
	var last time.Time
	for _, a := range g.Attempts {
		if a.AttemptedAt.After(last) {
			last = a.AttemptedAt
		}
	}
	elapsed := last.Sub(g.CreatedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return daily.Standing{
		Username:  username,
		Guesses:   len(g.Attempts),
		ElapsedMs: elapsed,
		StartedAt: g.CreatedAt,
	}
}

func limitStandings(rows []daily.Standing, limit int) []daily.Standing {
	if limit <= 0 {
		limit = daily.DefaultStandingsLimit
	}
	daily.SortStandings(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
