package game

// AttemptView is an attempt with its letter feedback.
type AttemptView struct {
	Attempt      string        `json:"attempt"`
	LettersState []LetterState `json:"lettersState"`
}

// View is the client-facing rendering of a game.
// Word is only revealed once the game is over; Category only when hints are on.
type View struct {
	ID               int64         `json:"id"`
	Status           Status        `json:"gameStatus"`
	Attempts         []AttemptView `json:"attempts"`
	HardMode         bool          `json:"hardMode"`
	Hints            bool          `json:"hints"`
	DailyChallengeID int64         `json:"dailyChallengeId,omitempty"`
	Category         string        `json:"category,omitempty"`
	Word             string        `json:"word,omitempty"`
}

// NewView renders g.
func NewView(g *Game) View {
	v := View{
		ID:               g.ID,
		Status:           g.Status(),
		Attempts:         make([]AttemptView, 0, len(g.Attempts)),
		HardMode:         g.HardMode,
		Hints:            g.Hints,
		DailyChallengeID: g.DailyChallengeID,
	}
	for _, a := range g.Attempts {
		v.Attempts = append(v.Attempts, AttemptView{
			Attempt:      a.Word,
			LettersState: Evaluate(g.Word, a.Word, g.HardMode),
		})
	}
	if g.Hints {
		v.Category = g.Category
	}
	if v.Status != StatusInProgress {
		v.Word = g.Word
	}
	return v
}
