package service

import (
	"context"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
	"github.com/robalobadob/wordle-league/internal/store"
)

// Settings returns the user's preferences.
func (s *Service) Settings(ctx context.Context, userID string) (game.Settings, error) {
	var st game.Settings
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		st, err = r.Settings(ctx, userID)
		return err
	})
	return st, err
}

// UpdateSettings replaces the user's preferences. Games already started
// keep the flags they were created with.
func (s *Service) UpdateSettings(ctx context.Context, userID string, st game.Settings) (game.Settings, error) {
	err := s.store.Write(ctx, func(r store.Repo) error {
		return r.SaveSettings(ctx, userID, st)
	})
	if err != nil {
		return game.Settings{}, err
	}
	return st, nil
}

// Achievements lists the catalog with the user's unlock state.
func (s *Service) Achievements(ctx context.Context, userID string) ([]achievement.Detail, error) {
	var out []achievement.Detail
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		out, err = achievement.ListForUser(ctx, r, userID)
		return err
	})
	return out, err
}

// Achievement describes one achievement and how many users hold it.
func (s *Service) Achievement(ctx context.Context, id achievement.ID) (achievement.Detail, error) {
	var d achievement.Detail
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		d, err = achievement.Details(ctx, r, id)
		return err
	})
	return d, err
}

// GetLeaderboard returns one ranked page, served from the cache when
// possible.
func (s *Service) GetLeaderboard(ctx context.Context, q leaderboard.Query) ([]leaderboard.View, error) {
	q = q.Normalize()
	key := q.Key()
	if views, ok := s.cache.Get(ctx, key); ok {
		return views, nil
	}
	var entries []leaderboard.Entry
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		entries, err = r.LeaderboardPage(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	views := leaderboard.Views(entries, q.Skip())
	s.cache.Set(ctx, key, views)
	return views, nil
}
