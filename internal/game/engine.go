// internal/game/engine.go
//
// Rules for a single Wordle game.
// Responsibilities:
//   - Evaluate a guess against the target, letter by letter.
//   - Derive the game status from its attempts.
//   - Apply an attempt, rejecting it once the game is over.
//
// Notes:
//   - Each guess letter is checked independently against the whole target,
//     so repeated letters may all report WrongPlace.
//   - Hard mode never reports WrongPlace.

package game

import (
	"strings"
	"time"

	"github.com/robalobadob/wordle-league/internal/apperr"
)

// Normalize trims and upper-cases a word.
func Normalize(w string) string {
	return strings.ToUpper(strings.TrimSpace(w))
}

// Evaluate returns one LetterState per rune of guess.
//
// Rules per position i:
//   - guess[i] == target[i]            → CorrectPlace
//   - hard mode                        → NotGuessed
//   - target contains guess[i] anywhere → WrongPlace
//   - otherwise                        → NotGuessed
//
// Length mismatches are not validated here.
func Evaluate(target, guess string, hardMode bool) []LetterState {
	t := []rune(Normalize(target))
	g := []rune(Normalize(guess))
	out := make([]LetterState, len(g))
	for i, r := range g {
		switch {
		case i < len(t) && t[i] == r:
			out[i] = CorrectPlace
		case hardMode:
			out[i] = NotGuessed
		case containsRune(t, r):
			out[i] = WrongPlace
		default:
			out[i] = NotGuessed
		}
	}
	return out
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// Status reports the derived state: Won if the won flag is set, Finished once
// MaxAttempts attempts exist, otherwise InProgress.
func (g *Game) Status() Status {
	switch {
	case g.Won:
		return StatusWon
	case len(g.Attempts) >= MaxAttempts:
		return StatusFinished
	default:
		return StatusInProgress
	}
}

// Terminal reports whether the game can no longer accept attempts.
func (g *Game) Terminal() bool { return g.Status() != StatusInProgress }

// Apply appends an attempt and updates the won flag.
// The guess must already be validated against the dictionary.
// Returns a GameFinished error if the game is not in progress.
func (g *Game) Apply(guess string, at time.Time) (Attempt, error) {
	if g.Terminal() {
		return Attempt{}, apperr.New(apperr.GameFinished, "game %d is already finished", g.ID)
	}
	a := Attempt{
		GameID:      g.ID,
		Word:        Normalize(guess),
		AttemptedAt: at.UTC(),
	}
	g.Attempts = append(g.Attempts, a)
	if strings.EqualFold(a.Word, g.Word) {
		g.Won = true
	}
	return a, nil
}

// FirstTry reports whether the game was won on its first attempt.
func (g *Game) FirstTry() bool {
	return g.Won && len(g.Attempts) == 1
}
