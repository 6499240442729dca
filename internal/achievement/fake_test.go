package achievement

import (
	"context"
	"time"

	"github.com/robalobadob/wordle-league/internal/game"
)

// FakeRepository is a programmable, map-backed Repository.
type FakeRepository struct {
	trace []string

	Games      []*game.Game
	Categories int
	Users      int
	Granted    map[ID]time.Time
	Holders    map[ID]int

	GrantFn func(ctx context.Context, userID string, id ID, at time.Time) (bool, error)
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{Granted: map[ID]time.Time{}, Holders: map[ID]int{}, Users: 1}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepository) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeRepository) UnlockedAchievements(ctx context.Context, userID string) (map[ID]time.Time, error) {
	f.record("UnlockedAchievements")
	out := make(map[ID]time.Time, len(f.Granted))
	for k, v := range f.Granted {
		out[k] = v
	}
	return out, nil
}

func (f *FakeRepository) UserGames(ctx context.Context, userID string) ([]*game.Game, error) {
	f.record("UserGames")
	return f.Games, nil
}

func (f *FakeRepository) CountCategories(ctx context.Context) (int, error) {
	f.record("CountCategories")
	return f.Categories, nil
}

func (f *FakeRepository) GrantAchievement(ctx context.Context, userID string, id ID, at time.Time) (bool, error) {
	f.record("GrantAchievement")
	if f.GrantFn != nil {
		return f.GrantFn(ctx, userID, id, at)
	}
	if _, ok := f.Granted[id]; ok {
		return false, nil
	}
	f.Granted[id] = at
	f.Holders[id]++
	return true, nil
}

func (f *FakeRepository) CountAchievementHolders(ctx context.Context, id ID) (int, error) {
	f.record("CountAchievementHolders")
	return f.Holders[id], nil
}

func (f *FakeRepository) CountUsers(ctx context.Context) (int, error) {
	f.record("CountUsers")
	return f.Users, nil
}
