package game

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle-league/internal/apperr"
)

const (
	C = CorrectPlace
	W = WrongPlace
	N = NotGuessed
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		target string
		guess  string
		hard   bool
		want   []LetterState
	}{
		{"exact", "CRANE", "CRANE", false, []LetterState{C, C, C, C, C}},
		{"exact hard", "CRANE", "CRANE", true, []LetterState{C, C, C, C, C}},
		{"anagram", "CRANE", "TRACE", false, []LetterState{N, C, C, W, C}},
		{"anagram hard", "CRANE", "TRACE", true, []LetterState{N, C, C, N, C}},
		{"lower case input", "crane", "trace", false, []LetterState{N, C, C, W, C}},
		{"nothing shared", "CRANE", "FOGGY", false, []LetterState{N, N, N, N, N}},
		// Repeated guess letters are each checked against the full target.
		{"repeated letters", "ATOLL", "LLAMA", false, []LetterState{W, W, W, N, W}},
		{"short guess", "CRANE", "CR", false, []LetterState{C, C}},
		{"long guess", "CRANE", "CRANES", false, []LetterState{C, C, C, C, C, N}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.target, tt.guess, tt.hard)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Evaluate(%q, %q, %v) mismatch (-want +got):\n%s", tt.target, tt.guess, tt.hard, diff)
			}
		})
	}
}

func TestEvaluateHardModeNeverWrongPlace(t *testing.T) {
	words := []string{"CRANE", "TRACE", "RIVER", "ATOLL", "LLAMA", "APPLE", "BERRY", "EARTH", "HEART"}
	for _, target := range words {
		for _, guess := range words {
			got := Evaluate(target, guess, true)
			require.Len(t, got, len(guess))
			for i, s := range got {
				assert.NotEqual(t, WrongPlace, s, "%s/%s pos %d", target, guess, i)
				if target[i] == guess[i] {
					assert.Equal(t, CorrectPlace, s)
				}
			}
		}
	}
}

func newGame(word string) *Game {
	return &Game{ID: 7, UserID: "u1", Word: word}
}

func TestStatusTransitions(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("win", func(t *testing.T) {
		g := newGame("CRANE")
		assert.Equal(t, StatusInProgress, g.Status())
		_, err := g.Apply("trace", now)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, g.Status())
		_, err = g.Apply("crane", now)
		require.NoError(t, err)
		assert.True(t, g.Won)
		assert.Equal(t, StatusWon, g.Status())
		assert.False(t, g.FirstTry())
	})

	t.Run("loss after six", func(t *testing.T) {
		g := newGame("CRANE")
		for i := 0; i < MaxAttempts; i++ {
			_, err := g.Apply("TRACE", now)
			require.NoError(t, err)
		}
		assert.False(t, g.Won)
		assert.Equal(t, StatusFinished, g.Status())
	})

	t.Run("win on sixth", func(t *testing.T) {
		g := newGame("CRANE")
		for i := 0; i < MaxAttempts-1; i++ {
			_, err := g.Apply("TRACE", now)
			require.NoError(t, err)
		}
		_, err := g.Apply("CRANE", now)
		require.NoError(t, err)
		assert.Equal(t, StatusWon, g.Status())
	})

	t.Run("first try", func(t *testing.T) {
		g := newGame("CRANE")
		_, err := g.Apply("Crane", now)
		require.NoError(t, err)
		assert.True(t, g.FirstTry())
	})
}

func TestApplyRejectsTerminalGames(t *testing.T) {
	now := time.Now()
	won := newGame("CRANE")
	_, err := won.Apply("CRANE", now)
	require.NoError(t, err)

	lost := newGame("CRANE")
	for i := 0; i < MaxAttempts; i++ {
		_, err := lost.Apply("TRACE", now)
		require.NoError(t, err)
	}

	for name, g := range map[string]*Game{"won": won, "finished": lost} {
		t.Run(name, func(t *testing.T) {
			before := len(g.Attempts)
			_, err := g.Apply("CRANE", now)
			assert.ErrorIs(t, err, apperr.ErrGameFinished)
			assert.Len(t, g.Attempts, before)
			assert.LessOrEqual(t, len(g.Attempts), MaxAttempts)
		})
	}
}

func TestNewView(t *testing.T) {
	now := time.Now()
	g := &Game{ID: 3, Word: "CRANE", Category: "Nature", Hints: true}
	_, _ = g.Apply("TRACE", now)

	v := NewView(g)
	assert.Equal(t, StatusInProgress, v.Status)
	assert.Equal(t, "Nature", v.Category)
	assert.Empty(t, v.Word, "target hidden while in progress")
	require.Len(t, v.Attempts, 1)
	assert.Equal(t, "TRACE", v.Attempts[0].Attempt)
	assert.Equal(t, []LetterState{N, C, C, W, C}, v.Attempts[0].LettersState)

	_, _ = g.Apply("CRANE", now)
	v = NewView(g)
	assert.Equal(t, StatusWon, v.Status)
	assert.Equal(t, "CRANE", v.Word)

	g.Hints = false
	assert.Empty(t, NewView(g).Category, "category hidden without hints")
}
