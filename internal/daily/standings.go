package daily

import (
	"sort"
	"time"
)

// Standing is one winner of a daily challenge.
type Standing struct {
	Rank      int       `json:"rank"`
	Username  string    `json:"username"`
	Guesses   int       `json:"guesses"`
	ElapsedMs int64     `json:"elapsedMs"`
	StartedAt time.Time `json:"-"`
}

// DefaultStandingsLimit caps the rows returned when no limit is given.
const DefaultStandingsLimit = 20

// SortStandings orders by guesses, then elapsed time, then start time, and
// assigns ranks.
func SortStandings(rows []Standing) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Guesses != b.Guesses {
			return a.Guesses < b.Guesses
		}
		if a.ElapsedMs != b.ElapsedMs {
			return a.ElapsedMs < b.ElapsedMs
		}
		return a.StartedAt.Before(b.StartedAt)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}
