package daily

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	assert.Equal(t, "2024-02-29", DateKey(time.Date(2024, 3, 1, 5, 0, 0, 0, loc)))
}

func TestSaltedSelectorIsStablePerDay(t *testing.T) {
	s := SaltedSelector{Salt: "pepper"}
	morning := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, s.Pick(morning, 52), s.Pick(evening, 52))
	for d := 0; d < 30; d++ {
		i := s.Pick(morning.AddDate(0, 0, d), 52)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 52)
	}
	assert.Equal(t, 0, s.Pick(morning, 0))
}

func TestRandomSelectorSeeded(t *testing.T) {
	a := NewRandomSelector(rand.New(rand.NewPCG(1, 2)))
	b := NewRandomSelector(rand.New(rand.NewPCG(1, 2)))
	now := time.Now()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Pick(now, 100), b.Pick(now, 100))
	}
	assert.Equal(t, 0, a.Pick(now, 0))
}

func TestSortStandings(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	rows := []Standing{
		{Username: "slow", Guesses: 3, ElapsedMs: 90000, StartedAt: t0},
		{Username: "late", Guesses: 3, ElapsedMs: 1000, StartedAt: t0.Add(time.Hour)},
		{Username: "best", Guesses: 2, ElapsedMs: 500000, StartedAt: t0},
		{Username: "early", Guesses: 3, ElapsedMs: 1000, StartedAt: t0},
	}
	SortStandings(rows)
	var names []string
	for _, r := range rows {
		names = append(names, r.Username)
	}
	assert.Equal(t, []string{"best", "early", "late", "slow"}, names)
	assert.Equal(t, 4, rows[3].Rank)
}
