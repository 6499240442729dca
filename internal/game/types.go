// internal/game/types.go
//
// Entity types for Wordle games.
// Defines:
//   - LetterState: per-letter feedback for an attempt.
//   - Status: derived game status (in progress, won, finished).
//   - Game, Attempt, Word, Category, Settings, DailyChallenge.
//
// Entities reference each other by id; nothing here navigates the store.

package game

import "time"

const (
	// MaxAttempts is the number of guesses a game allows.
	MaxAttempts = 6
	// WordLength is the length of every answer and guess.
	WordLength = 5
)

// LetterState is the evaluation result for a single letter of an attempt.
type LetterState string

const (
	CorrectPlace LetterState = "correct_place"
	WrongPlace   LetterState = "wrong_place"
	NotGuessed   LetterState = "not_guessed"
)

// Status is derived from a game's attempts and won flag; it is never stored.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusFinished   Status = "finished"
)

// Category groups answer words (Nature, People, ...).
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Word is an answer word with its category.
type Word struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	CategoryID int64  `json:"categoryId"`
	Category   string `json:"category"`
}

// Attempt is one submitted guess. Immutable once stored.
type Attempt struct {
	ID          int64     `json:"id"`
	GameID      int64     `json:"gameId"`
	Word        string    `json:"word"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// Game holds one user's play of a target word.
type Game struct {
	ID               int64     // Store-assigned identifier.
	UserID           string    // Owning user.
	WordID           int64     // Target word reference.
	Word             string    // Target word text (upper case).
	CategoryID       int64     // Category of the target word.
	Category         string    // Category name of the target word.
	DailyChallengeID int64     // Zero unless the game belongs to a daily challenge.
	HardMode         bool      // Stamped from settings at creation.
	Hints            bool      // Stamped from settings at creation.
	Won              bool      // Set only by a matching attempt.
	Attempts         []Attempt // Ordered by id / time.
	Version          int       // Optimistic concurrency token.
	CreatedAt        time.Time
}

// Settings are per-user preferences. HardMode and ShowHints are copied onto
// new games; later changes never touch existing games.
type Settings struct {
	DarkMode         bool `json:"darkMode"`
	HardMode         bool `json:"hardMode"`
	HighContrastMode bool `json:"highContrastMode"`
	ShowHints        bool `json:"showHints"`
}

// DefaultSettings is what a freshly registered user gets.
func DefaultSettings() Settings {
	return Settings{ShowHints: true}
}

// DailyChallenge is the shared word for one UTC calendar date.
type DailyChallenge struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"` // YYYY-MM-DD
	WordID int64  `json:"-"`
	Word   string `json:"-"`
}
