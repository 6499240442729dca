// Package leaderboard maintains per-user aggregates and points.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Entry is a user's aggregate, created lazily on their first finished game.
type Entry struct {
	UserID         string
	Username       string
	GamesPlayed    int
	GamesWon       int
	WinPercentage  float64
	AverageGuesses float64
	Points         int
}

// Points for a win. First match wins.
func Points(hardMode, hints bool) int {
	switch {
	case hardMode && !hints:
		return 20
	case hardMode:
		return 15
	case !hints:
		return 10
	default:
		return 5
	}
}

// Repository is the store surface the updater needs.
type Repository interface {
	// LeaderboardEntry returns the user's entry and whether it exists.
	LeaderboardEntry(ctx context.Context, userID string) (Entry, bool, error)
	SaveLeaderboardEntry(ctx context.Context, e Entry) error
	// WonGameAttemptCounts returns the attempt count of every won game.
	WonGameAttemptCounts(ctx context.Context, userID string) ([]int, error)
}

// RecordGameEnd folds one finished game into the user's entry. Counts and
// points are incremented; win percentage and average guesses are recomputed
// from scratch so repeated calls never drift.
func RecordGameEnd(ctx context.Context, repo Repository, userID string, won, hardMode, hints bool) (Entry, error) {
	e, ok, err := repo.LeaderboardEntry(ctx, userID)
	if err != nil {
		return Entry{}, fmt.Errorf("load leaderboard entry: %w", err)
	}
	if !ok {
		e = Entry{UserID: userID}
	}

	e.GamesPlayed++
	if won {
		e.GamesWon++
		e.Points += Points(hardMode, hints)
	}
	e.WinPercentage = WinPercentage(e.GamesWon, e.GamesPlayed)

	counts, err := repo.WonGameAttemptCounts(ctx, userID)
	if err != nil {
		return Entry{}, fmt.Errorf("load won games: %w", err)
	}
	e.AverageGuesses = Average(counts)

	if err := repo.SaveLeaderboardEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("save leaderboard entry: %w", err)
	}
	return e, nil
}

// WinPercentage is won/played*100, or 0 before any game.
func WinPercentage(won, played int) float64 {
	if played == 0 {
		return 0
	}
	return float64(won) / float64(played) * 100
}

// Average is the arithmetic mean of counts, or 0 when empty.
func Average(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return float64(sum) / float64(len(counts))
}

// View is one leaderboard row as served to clients.
type View struct {
	Rank           int     `json:"rank"`
	Username       string  `json:"username"`
	GamesPlayed    int     `json:"gamesPlayed"`
	GamesWon       int     `json:"gamesWon"`
	WinPercentage  float64 `json:"winPercentage"`
	AverageGuesses float64 `json:"averageGuesses"`
	Points         int     `json:"points"`
}

// Sort orders entries by points desc, win percentage desc, average guesses
// asc, then username for a stable result.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.WinPercentage != b.WinPercentage {
			return a.WinPercentage > b.WinPercentage
		}
		if a.AverageGuesses != b.AverageGuesses {
			return a.AverageGuesses < b.AverageGuesses
		}
		return a.Username < b.Username
	})
}

// Views ranks an already sorted page starting at offset.
func Views(entries []Entry, offset int) []View {
	out := make([]View, 0, len(entries))
	for i, e := range entries {
		out = append(out, View{
			Rank:           offset + i + 1,
			Username:       e.Username,
			GamesPlayed:    e.GamesPlayed,
			GamesWon:       e.GamesWon,
			WinPercentage:  e.WinPercentage,
			AverageGuesses: e.AverageGuesses,
			Points:         e.Points,
		})
	}
	return out
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Query selects a leaderboard page. Filter is a case-insensitive username
// substring.
type Query struct {
	Page     int
	PageSize int
	Filter   string
}

// Normalize applies defaults and bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	q.Filter = strings.TrimSpace(q.Filter)
	return q
}

// Skip is the row offset of the page.
func (q Query) Skip() int { return (q.Page - 1) * q.PageSize }

// Key identifies the page in a cache.
func (q Query) Key() string {
	return fmt.Sprintf("p=%d:s=%d:f=%s", q.Page, q.PageSize, strings.ToLower(q.Filter))
}

// Cache stores rendered pages. Invalidate drops every page.
type Cache interface {
	Get(ctx context.Context, key string) ([]View, bool)
	Set(ctx context.Context, key string, views []View)
	Invalidate(ctx context.Context)
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]View, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []View)        {}
func (NopCache) Invalidate(context.Context)                 {}
