package achievement

import (
	"context"
	"fmt"
	"time"

	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/game"
)

// Repository is the store surface the evaluator needs. Implementations are
// expected to be transaction scoped.
type Repository interface {
	UnlockedAchievements(ctx context.Context, userID string) (map[ID]time.Time, error)
	UserGames(ctx context.Context, userID string) ([]*game.Game, error)
	CountCategories(ctx context.Context) (int, error)
	// GrantAchievement inserts the (user, achievement) row and reports
	// whether it was newly created.
	GrantAchievement(ctx context.Context, userID string, id ID, at time.Time) (bool, error)
	CountAchievementHolders(ctx context.Context, id ID) (int, error)
	CountUsers(ctx context.Context) (int, error)
}

// Detail is the client-facing view of an achievement.
type Detail struct {
	ID             ID         `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Achieved       *bool      `json:"achieved,omitempty"`
	DateAchieved   *time.Time `json:"dateAchieved,omitempty"`
	PercentOfUsers *float64   `json:"percentOfUsers,omitempty"`
}

// Evaluator grants achievements whose predicates hold.
type Evaluator struct {
	catalog    []Achievement
	predicates map[ID]Predicate
	now        func() time.Time
}

// NewEvaluator returns an Evaluator over the static Catalog.
// now defaults to time.Now.
func NewEvaluator(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{catalog: Catalog, predicates: predicates, now: now}
}

// Update checks every catalog entry the user does not hold yet, in catalog
// order, and returns the ones newly granted by this call.
func (e *Evaluator) Update(ctx context.Context, repo Repository, userID string) ([]Detail, error) {
	owned, err := repo.UnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlocked achievements: %w", err)
	}

	var pending []Achievement
	for _, a := range e.catalog {
		if _, ok := owned[a.ID]; !ok {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	games, err := repo.UserGames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	cats, err := repo.CountCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	h := History{Games: games, Categories: cats}

	today := truncateDay(e.now())
	var unlocked []Detail
	for _, a := range pending {
		pred, ok := e.predicates[a.ID]
		if !ok || !pred(h) {
			continue
		}
		created, err := repo.GrantAchievement(ctx, userID, a.ID, today)
		if err != nil {
			return nil, fmt.Errorf("grant achievement %d: %w", a.ID, err)
		}
		if !created {
			continue
		}
		d, err := withPercent(ctx, repo, a)
		if err != nil {
			return nil, err
		}
		d.DateAchieved = &today
		unlocked = append(unlocked, d)
	}
	return unlocked, nil
}

// Details returns one catalog entry with the share of users holding it.
func Details(ctx context.Context, repo Repository, id ID) (Detail, error) {
	a, ok := Lookup(id)
	if !ok {
		return Detail{}, apperr.New(apperr.NotFound, "achievement %d not found", id)
	}
	return withPercent(ctx, repo, a)
}

// ListForUser returns the whole catalog flagged with what the user holds.
func ListForUser(ctx context.Context, repo Repository, userID string) ([]Detail, error) {
	owned, err := repo.UnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlocked achievements: %w", err)
	}
	out := make([]Detail, 0, len(Catalog))
	for _, a := range Catalog {
		d := Detail{ID: a.ID, Name: a.Name, Description: a.Description}
		at, ok := owned[a.ID]
		d.Achieved = &ok
		if ok {
			d.DateAchieved = &at
		}
		out = append(out, d)
	}
	return out, nil
}

// Lookup finds a catalog entry by id.
func Lookup(id ID) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

func withPercent(ctx context.Context, repo Repository, a Achievement) (Detail, error) {
	holders, err := repo.CountAchievementHolders(ctx, a.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("count holders: %w", err)
	}
	users, err := repo.CountUsers(ctx)
	if err != nil {
		return Detail{}, fmt.Errorf("count users: %w", err)
	}
	pct := Percent(holders, users)
	return Detail{ID: a.ID, Name: a.Name, Description: a.Description, PercentOfUsers: &pct}, nil
}

// Percent is 100*holders/users, or 0 with no users.
func Percent(holders, users int) float64 {
	if users <= 0 {
		return 0
	}
	return 100 * float64(holders) / float64(users)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
