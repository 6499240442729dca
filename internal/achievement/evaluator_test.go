package achievement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/game"
)

var day0 = time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)

// played builds a game with the given attempts, all on the same instant.
func played(word string, at time.Time, guesses ...string) *game.Game {
	g := &game.Game{Word: word, Hints: true}
	for _, w := range guesses {
		if _, err := g.Apply(w, at); err != nil {
			panic(err)
		}
	}
	return g
}

func ids(ds []Detail) []ID {
	out := make([]ID, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

func fixedNow() time.Time { return day0 }

func TestUpdateFirstSolveAndFirstTry(t *testing.T) {
	tests := []struct {
		name  string
		games []*game.Game
		want  []ID
	}{
		{"no games", nil, nil},
		{"lost only", []*game.Game{played("CRANE", day0, "TRACE", "TRACE", "TRACE", "TRACE", "TRACE", "TRACE")}, nil},
		{"won in two", []*game.Game{played("CRANE", day0, "TRACE", "CRANE")}, []ID{FirstSolve}},
		{"won in one", []*game.Game{played("CRANE", day0, "CRANE")}, []ID{FirstSolve, FirstTry}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeRepository()
			repo.Games = tt.games
			got, err := NewEvaluator(fixedNow).Update(context.Background(), repo, "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, nilIfEmpty(ids(got)))
		})
	}
}

func nilIfEmpty(in []ID) []ID {
	if len(in) == 0 {
		return nil
	}
	return in
}

func TestUpdateHintsAndHardMode(t *testing.T) {
	g := played("CRANE", day0, "TRACE", "CRANE")
	g.Hints = false
	g.HardMode = true

	repo := NewFakeRepository()
	repo.Games = []*game.Game{g}
	got, err := NewEvaluator(fixedNow).Update(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Equal(t, []ID{FirstSolve, NoHints, HardMode}, ids(got))

	for _, d := range got {
		require.NotNil(t, d.DateAchieved)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d.DateAchieved)
		require.NotNil(t, d.PercentOfUsers)
		assert.Equal(t, 100.0, *d.PercentOfUsers)
	}
}

func TestUpdateNeverGrantsTwice(t *testing.T) {
	repo := NewFakeRepository()
	repo.Games = []*game.Game{played("CRANE", day0, "CRANE")}
	ev := NewEvaluator(fixedNow)

	first, err := ev.Update(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := ev.Update(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, repo.Holders[FirstSolve])
}

func TestUpdateSkipsLostGrantRace(t *testing.T) {
	repo := NewFakeRepository()
	repo.Games = []*game.Game{played("CRANE", day0, "CRANE")}
	// Another request inserted the rows between the read and the grant.
	repo.GrantFn = func(ctx context.Context, userID string, id ID, at time.Time) (bool, error) {
		return false, nil
	}
	got, err := NewEvaluator(fixedNow).Update(context.Background(), repo, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotContains(t, repo.Trace(), "CountAchievementHolders")
}

func TestPersistentPlayer(t *testing.T) {
	streak := func(days ...int) []*game.Game {
		var gs []*game.Game
		for _, d := range days {
			gs = append(gs, played("CRANE", day0.AddDate(0, 0, d), "TRACE"))
		}
		return gs
	}
	tests := []struct {
		name string
		days []int
		want bool
	}{
		{"seven in a row", []int{0, 1, 2, 3, 4, 5, 6}, true},
		{"unordered with repeats", []int{6, 0, 3, 3, 1, 5, 2, 4, 4}, true},
		{"gap", []int{0, 1, 2, 4, 5, 6, 7}, false},
		{"six only", []int{0, 1, 2, 3, 4, 5}, false},
		{"late run", []int{-10, 0, 1, 2, 3, 4, 5, 6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, predicates[PersistentPlayer](History{Games: streak(tt.days...)}))
		})
	}
}

func TestHasStreak(t *testing.T) {
	assert.True(t, HasStreak([]int64{1, 2, 3}, 3))
	assert.False(t, HasStreak([]int64{1, 2, 4}, 3))
	assert.True(t, HasStreak([]int64{1, 3, 4, 5}, 3))
	assert.False(t, HasStreak(nil, 1))
	assert.True(t, HasStreak(nil, 0))
}

func TestCategoryMaster(t *testing.T) {
	wins := func(cat int64, n int) []*game.Game {
		var gs []*game.Game
		for i := 0; i < n; i++ {
			g := played("CRANE", day0, "CRANE")
			g.CategoryID = cat
			gs = append(gs, g)
		}
		return gs
	}
	all := append(wins(1, 5), wins(2, 5)...)

	assert.True(t, categoryMaster(History{Games: all, Categories: 2}))
	assert.False(t, categoryMaster(History{Games: all, Categories: 3}))
	assert.False(t, categoryMaster(History{Games: append(wins(1, 5), wins(2, 4)...), Categories: 2}))
	assert.False(t, categoryMaster(History{Categories: 0}))
}

func TestDetails(t *testing.T) {
	repo := NewFakeRepository()
	repo.Users = 4
	repo.Holders[FirstTry] = 1

	d, err := Details(context.Background(), repo, FirstTry)
	require.NoError(t, err)
	assert.Equal(t, "First Try!", d.Name)
	require.NotNil(t, d.PercentOfUsers)
	assert.Equal(t, 25.0, *d.PercentOfUsers)

	_, err = Details(context.Background(), repo, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListForUser(t *testing.T) {
	repo := NewFakeRepository()
	repo.Granted[NoHints] = day0

	list, err := ListForUser(context.Background(), repo, "u1")
	require.NoError(t, err)
	require.Len(t, list, len(Catalog))
	for _, d := range list {
		require.NotNil(t, d.Achieved)
		assert.Equal(t, d.ID == NoHints, *d.Achieved, d.Name)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
}
