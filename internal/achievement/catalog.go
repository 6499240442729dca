// Package achievement evaluates and grants per-user achievements.
//
// The catalog is static; each entry is bound to a Predicate over the user's
// game history. Grants are guarded by the store's (user, achievement)
// uniqueness, so an achievement is only ever reported once per user.
package achievement

import (
	"sort"
	"time"

	"github.com/robalobadob/wordle-league/internal/game"
)

// ID identifies an achievement in the catalog.
type ID int64

const (
	FirstSolve       ID = 1
	FirstTry         ID = 2
	PersistentPlayer ID = 3
	CategoryMaster   ID = 4
	NoHints          ID = 5
	HardMode         ID = 6
)

// Achievement is a catalog entry.
type Achievement struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists every achievement in id order.
var Catalog = []Achievement{
	{FirstSolve, "First Solve!", "Solve a Wordle game."},
	{FirstTry, "First Try!", "Solve a Wordle on your first attempt."},
	{PersistentPlayer, "Persistent Player", "Play Wordle for 7 consecutive days."},
	{CategoryMaster, "Category Master", "Solve 5 Wordles from each category."},
	{NoHints, "No hints", "Solve wordle game without hints."},
	{HardMode, "Hard mode!", "Solve wordle hard mode game."},
}

const (
	// StreakDays is the run length for Persistent Player.
	StreakDays = 7
	// CategoryWins is the per-category win count for Category Master.
	CategoryWins = 5
)

// History is the snapshot predicates run against.
type History struct {
	Games      []*game.Game // all of the user's games, with attempts
	Categories int          // total number of word categories
}

// Predicate reports whether a history satisfies an achievement.
type Predicate func(h History) bool

var predicates = map[ID]Predicate{
	FirstSolve: func(h History) bool {
		return anyGame(h, func(g *game.Game) bool { return g.Won })
	},
	FirstTry: func(h History) bool {
		return anyGame(h, (*game.Game).FirstTry)
	},
	PersistentPlayer: func(h History) bool {
		return HasStreak(attemptDays(h.Games), StreakDays)
	},
	CategoryMaster: categoryMaster,
	NoHints: func(h History) bool {
		return anyGame(h, func(g *game.Game) bool { return g.Won && !g.Hints })
	},
	HardMode: func(h History) bool {
		return anyGame(h, func(g *game.Game) bool { return g.Won && g.HardMode })
	},
}

func anyGame(h History, fn func(*game.Game) bool) bool {
	for _, g := range h.Games {
		if fn(g) {
			return true
		}
	}
	return false
}

// categoryMaster requires every category to have at least CategoryWins won
// games. A store with no categories never satisfies it.
func categoryMaster(h History) bool {
	if h.Categories == 0 {
		return false
	}
	wins := make(map[int64]int)
	for _, g := range h.Games {
		if g.Won {
			wins[g.CategoryID]++
		}
	}
	full := 0
	for _, n := range wins {
		if n >= CategoryWins {
			full++
		}
	}
	return full >= h.Categories
}

// attemptDays returns the distinct UTC days (days since epoch) on which any
// attempt was made, sorted ascending.
func attemptDays(games []*game.Game) []int64 {
	seen := make(map[int64]struct{})
	for _, g := range games {
		for _, a := range g.Attempts {
			seen[dayNumber(a.AttemptedAt)] = struct{}{}
		}
	}
	days := make([]int64, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

func dayNumber(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

// HasStreak reports whether sorted, distinct days contain a run of n
// consecutive days, i.e. n entries where day[i]-i is constant.
func HasStreak(days []int64, n int) bool {
	if n <= 0 {
		return true
	}
	run := 0
	for i, d := range days {
		if i > 0 && d == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
