package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/store"
)

// Standings is the ranked list of winners of one daily challenge.
type Standings struct {
	Date        string           `json:"date"`
	ChallengeID int64            `json:"dailyChallengeId"`
	Rows        []daily.Standing `json:"rows"`
}

// TodayChallenge returns the challenge for the current UTC date, creating it
// on first request.
func (s *Service) TodayChallenge(ctx context.Context) (game.DailyChallenge, error) {
	now := s.now()
	date := daily.DateKey(now)

	var dc game.DailyChallenge
	err := s.store.Read(ctx, func(r store.Repo) error {
		var err error
		dc, err = r.DailyChallengeByDate(ctx, date)
		return err
	})
	if err == nil || !errors.Is(err, apperr.ErrNotFound) {
		return dc, err
	}

	err = s.store.Write(ctx, func(r store.Repo) error {
		n, err := r.CountWords(ctx, 0)
		if err != nil {
			return fmt.Errorf("count words: %w", err)
		}
		if n == 0 {
			return apperr.New(apperr.NotFound, "no words available")
		}
		w, err := r.WordAt(ctx, 0, s.selector.Pick(now, n))
		if err != nil {
			return err
		}
		dc, err = r.EnsureDailyChallenge(ctx, date, w.ID)
		return err
	})
	if err != nil {
		return game.DailyChallenge{}, err
	}
	s.log.Info().Str("date", date).Int64("challenge", dc.ID).Msg("daily challenge ready")
	return dc, nil
}

// GetOrCreateDailyChallengeGame returns the user's game for a challenge,
// starting it if needed. Daily games are played without hard mode or hints
// so every player faces the same rules.
func (s *Service) GetOrCreateDailyChallengeGame(ctx context.Context, challengeID int64, userID string) (GameView, error) {
	var (
		g       *game.Game
		created bool
	)
	err := s.write(ctx, "daily_game", func(r store.Repo) error {
		created = false
		dc, err := r.DailyChallenge(ctx, challengeID)
		if err != nil {
			return err
		}
		g, err = r.GameForChallenge(ctx, dc.ID, userID)
		if err == nil || !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		ng := &game.Game{
			UserID:           userID,
			WordID:           dc.WordID,
			DailyChallengeID: dc.ID,
			CreatedAt:        s.now(),
		}
		if err := r.CreateGame(ctx, ng); err != nil {
			return err
		}
		created = true
		g, err = r.Game(ctx, ng.ID, userID)
		return err
	})
	if err != nil {
		return GameView{}, err
	}
	if created {
		s.metrics.GameStarted(true)
		s.log.Info().Str("user", userID).Int64("challenge", challengeID).Int64("game", g.ID).Msg("daily game created")
	}
	return view(g, nil), nil
}

// TodayGame is GetOrCreateDailyChallengeGame for the current challenge.
func (s *Service) TodayGame(ctx context.Context, userID string) (GameView, error) {
	dc, err := s.TodayChallenge(ctx)
	if err != nil {
		return GameView{}, err
	}
	return s.GetOrCreateDailyChallengeGame(ctx, dc.ID, userID)
}

// DailyStandings ranks today's winners by guesses then elapsed time.
// Before anyone asked for today's challenge the list is empty.
func (s *Service) DailyStandings(ctx context.Context, limit int) (Standings, error) {
	date := daily.DateKey(s.now())
	out := Standings{Date: date, Rows: []daily.Standing{}}
	err := s.store.Read(ctx, func(r store.Repo) error {
		dc, err := r.DailyChallengeByDate(ctx, date)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out.ChallengeID = dc.ID
		rows, err := r.DailyStandings(ctx, dc.ID, limit)
		if err != nil {
			return err
		}
		if rows != nil {
			out.Rows = rows
		}
		return nil
	})
	return out, err
}
