package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	entries map[string]Entry
	won     map[string][]int
	saveErr error
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[string]Entry{}, won: map[string][]int{}}
}

func (f *fakeRepo) LeaderboardEntry(_ context.Context, userID string) (Entry, bool, error) {
	e, ok := f.entries[userID]
	return e, ok, nil
}

func (f *fakeRepo) SaveLeaderboardEntry(_ context.Context, e Entry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.entries[e.UserID] = e
	return nil
}

func (f *fakeRepo) WonGameAttemptCounts(_ context.Context, userID string) ([]int, error) {
	return f.won[userID], nil
}

func TestPoints(t *testing.T) {
	tests := []struct {
		hard, hints bool
		want        int
	}{
		{true, false, 20},
		{true, true, 15},
		{false, false, 10},
		{false, true, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Points(tt.hard, tt.hints), "hard=%v hints=%v", tt.hard, tt.hints)
	}
}

func TestRecordGameEnd(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()

	// First finished game is a loss: entry created lazily.
	e, err := RecordGameEnd(ctx, repo, "u1", false, false, true)
	require.NoError(t, err)
	assert.Equal(t, Entry{UserID: "u1", GamesPlayed: 1}, e)

	// Hard mode without hints: +20.
	repo.won["u1"] = []int{3}
	e, err = RecordGameEnd(ctx, repo, "u1", true, true, false)
	require.NoError(t, err)
	assert.Equal(t, 2, e.GamesPlayed)
	assert.Equal(t, 1, e.GamesWon)
	assert.Equal(t, 20, e.Points)
	assert.Equal(t, 50.0, e.WinPercentage)
	assert.Equal(t, 3.0, e.AverageGuesses)

	// Plain win with hints: +5.
	repo.won["u1"] = []int{3, 4}
	e, err = RecordGameEnd(ctx, repo, "u1", true, false, true)
	require.NoError(t, err)
	assert.Equal(t, 25, e.Points)
	assert.InDelta(t, 66.666, e.WinPercentage, 0.01)
	assert.Equal(t, 3.5, e.AverageGuesses)
	assert.Equal(t, 3, repo.saves)
}

func TestRecordGameEndSaveError(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	_, err := RecordGameEnd(context.Background(), repo, "u1", true, false, false)
	assert.ErrorContains(t, err, "disk full")
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 2.0, Average([]int{1, 2, 3}))
	assert.Equal(t, 4.5, Average([]int{6, 3}))
}

func TestSortAndViews(t *testing.T) {
	entries := []Entry{
		{Username: "carol", Points: 10, WinPercentage: 50, AverageGuesses: 3},
		{Username: "alice", Points: 40, WinPercentage: 50, AverageGuesses: 4},
		{Username: "bob", Points: 10, WinPercentage: 50, AverageGuesses: 2},
		{Username: "dave", Points: 10, WinPercentage: 75, AverageGuesses: 5},
	}
	Sort(entries)

	views := Views(entries, 10)
	var names []string
	for _, v := range views {
		names = append(names, v.Username)
	}
	assert.Equal(t, []string{"alice", "dave", "bob", "carol"}, names)
	assert.Equal(t, 11, views[0].Rank)
	assert.Equal(t, 14, views[3].Rank)
}

func TestQueryNormalize(t *testing.T) {
	q := Query{Page: 0, PageSize: 0, Filter: "  Ann "}.Normalize()
	assert.Equal(t, Query{Page: 1, PageSize: DefaultPageSize, Filter: "Ann"}, q)
	assert.Equal(t, 0, q.Skip())

	q = Query{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, q.PageSize)
	assert.Equal(t, 200, q.Skip())

	assert.Equal(t, Query{Page: 1, PageSize: 10, Filter: "ANN"}.Key(), Query{Page: 1, PageSize: 10, Filter: "ann"}.Key())
}
