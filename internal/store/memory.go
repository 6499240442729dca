// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for development and tests, or when durability is not required.
//
// Characteristics:
//   - All state lives in one memState value guarded by an RWMutex.
//   - Write scopes are exclusive and work on a deep copy that replaces the
//     live state only when the callback succeeds.
//   - Read scopes share the live state and reject mutations.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
)

// Memory is a map-based Store.
type Memory struct {
	mu    sync.RWMutex // guards state
	state *memState
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func (m *Memory) Read(ctx context.Context, fn func(Repo) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memRepo{st: m.state})
}

func (m *Memory) Write(ctx context.Context, fn func(Repo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memRepo{st: work, writable: true}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *Memory) Close() error { return nil }

type memState struct {
	users        map[string]auth.User
	settings     map[string]game.Settings
	categories   []game.Category // id = index+1
	words        []game.Word     // id = index+1
	challenges   []game.DailyChallenge
	games        []game.Game // id = index+1
	achievements map[achievement.ID]achievement.Achievement
	unlocked     map[string]map[achievement.ID]time.Time
	leaderboard  map[string]leaderboard.Entry
	nextAttempt  int64
}

func newMemState() *memState {
	return &memState{
		users:        map[string]auth.User{},
		settings:     map[string]game.Settings{},
		achievements: map[achievement.ID]achievement.Achievement{},
		unlocked:     map[string]map[achievement.ID]time.Time{},
		leaderboard:  map[string]leaderboard.Entry{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:        make(map[string]auth.User, len(s.users)),
		settings:     make(map[string]game.Settings, len(s.settings)),
		categories:   append([]game.Category(nil), s.categories...),
		words:        append([]game.Word(nil), s.words...),
		challenges:   append([]game.DailyChallenge(nil), s.challenges...),
		games:        make([]game.Game, len(s.games)),
		achievements: make(map[achievement.ID]achievement.Achievement, len(s.achievements)),
		unlocked:     make(map[string]map[achievement.ID]time.Time, len(s.unlocked)),
		leaderboard:  make(map[string]leaderboard.Entry, len(s.leaderboard)),
		nextAttempt:  s.nextAttempt,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for i, g := range s.games {
		g.Attempts = append([]game.Attempt(nil), g.Attempts...)
		c.games[i] = g
	}
	for k, v := range s.achievements {
		c.achievements[k] = v
	}
	for u, set := range s.unlocked {
		cp := make(map[achievement.ID]time.Time, len(set))
		for k, v := range set {
			cp[k] = v
		}
		c.unlocked[u] = cp
	}
	for k, v := range s.leaderboard {
		c.leaderboard[k] = v
	}
	return c
}

type memRepo struct {
	st       *memState
	writable bool
}

func (r *memRepo) checkWrite() error {
	if !r.writable {
		return errReadOnly
	}
	return nil
}

// gameCopy returns a detached copy of a stored game with word fields filled.
func (r *memRepo) gameCopy(g game.Game) *game.Game {
	out := g
	out.Attempts = append([]game.Attempt(nil), g.Attempts...)
	if w, ok := r.word(g.WordID); ok {
		out.Word, out.CategoryID, out.Category = w.Text, w.CategoryID, w.Category
	}
	return &out
}

func (r *memRepo) word(id int64) (game.Word, bool) {
	if id < 1 || int(id) > len(r.st.words) {
		return game.Word{}, false
	}
	w := r.st.words[id-1]
	if c, ok := r.category(w.CategoryID); ok {
		w.Category = c.Name
	}
	return w, true
}

func (r *memRepo) category(id int64) (game.Category, bool) {
	if id < 1 || int(id) > len(r.st.categories) {
		return game.Category{}, false
	}
	return r.st.categories[id-1], true
}

// ------------------------------ catalog ------------------------------------

func (r *memRepo) UpsertCategory(ctx context.Context, c game.Category) (int64, error) {
	if err := r.checkWrite(); err != nil {
		return 0, err
	}
	for i := range r.st.categories {
		if r.st.categories[i].Name == c.Name {
			r.st.categories[i].Description = c.Description
			return r.st.categories[i].ID, nil
		}
	}
	c.ID = int64(len(r.st.categories) + 1)
	r.st.categories = append(r.st.categories, c)
	return c.ID, nil
}

func (r *memRepo) UpsertWord(ctx context.Context, text string, categoryID int64) (int64, error) {
	if err := r.checkWrite(); err != nil {
		return 0, err
	}
	for i := range r.st.words {
		if r.st.words[i].Text == text {
			r.st.words[i].CategoryID = categoryID
			return r.st.words[i].ID, nil
		}
	}
	w := game.Word{ID: int64(len(r.st.words) + 1), Text: text, CategoryID: categoryID}
	r.st.words = append(r.st.words, w)
	return w.ID, nil
}

func (r *memRepo) UpsertAchievement(ctx context.Context, a achievement.Achievement) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	r.st.achievements[a.ID] = a
	return nil
}

func (r *memRepo) Categories(ctx context.Context) ([]game.Category, error) {
	return append([]game.Category(nil), r.st.categories...), nil
}

func (r *memRepo) CategoryByName(ctx context.Context, name string) (game.Category, error) {
	for _, c := range r.st.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return game.Category{}, apperr.New(apperr.NotFound, "category %q not found", name)
}

func (r *memRepo) filteredWords(categoryID int64) []game.Word {
	var out []game.Word
	for _, w := range r.st.words {
		if categoryID == 0 || w.CategoryID == categoryID {
			out = append(out, w)
		}
	}
	return out
}

func (r *memRepo) CountWords(ctx context.Context, categoryID int64) (int, error) {
	return len(r.filteredWords(categoryID)), nil
}

func (r *memRepo) WordAt(ctx context.Context, categoryID int64, offset int) (game.Word, error) {
	ws := r.filteredWords(categoryID)
	if offset < 0 || offset >= len(ws) {
		return game.Word{}, apperr.New(apperr.NotFound, "no word at offset %d", offset)
	}
	w, _ := r.word(ws[offset].ID)
	return w, nil
}

// ------------------------------ accounts -----------------------------------

func (r *memRepo) CreateUser(ctx context.Context, u auth.User, s game.Settings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	for _, o := range r.st.users {
		if o.ID == u.ID || strings.EqualFold(o.Username, u.Username) || strings.EqualFold(o.Email, u.Email) {
			return apperr.New(apperr.Conflict, "username or email already taken")
		}
	}
	r.st.users[u.ID] = u
	r.st.settings[u.ID] = s
	return nil
}

func (r *memRepo) UserByID(ctx context.Context, id string) (auth.User, error) {
	if u, ok := r.st.users[id]; ok {
		return u, nil
	}
	return auth.User{}, apperr.New(apperr.NotFound, "user %s not found", id)
}

func (r *memRepo) UserByLogin(ctx context.Context, login string) (auth.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return auth.User{}, apperr.New(apperr.NotFound, "user %s not found", login)
}

func (r *memRepo) Settings(ctx context.Context, userID string) (game.Settings, error) {
	if s, ok := r.st.settings[userID]; ok {
		return s, nil
	}
	return game.Settings{}, apperr.New(apperr.NotFound, "settings for user %s not found", userID)
}

func (r *memRepo) SaveSettings(ctx context.Context, userID string, s game.Settings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if _, ok := r.st.settings[userID]; !ok {
		return apperr.New(apperr.NotFound, "settings for user %s not found", userID)
	}
	r.st.settings[userID] = s
	return nil
}

// ------------------------------- games -------------------------------------

func (r *memRepo) CreateGame(ctx context.Context, g *game.Game) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if g.DailyChallengeID != 0 {
		if _, err := r.GameForChallenge(ctx, g.DailyChallengeID, g.UserID); err == nil {
			return apperr.New(apperr.Conflict, "daily challenge %d already has a game for this user", g.DailyChallengeID)
		}
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.ID = int64(len(r.st.games) + 1)
	g.Version = 1
	g.Won = false
	g.Attempts = nil
	r.st.games = append(r.st.games, *g)
	return nil
}

func (r *memRepo) Game(ctx context.Context, id int64, userID string) (*game.Game, error) {
	if id >= 1 && int(id) <= len(r.st.games) {
		if g := r.st.games[id-1]; g.UserID == userID {
			return r.gameCopy(g), nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "game %d not found", id)
}

func (r *memRepo) GameForChallenge(ctx context.Context, challengeID int64, userID string) (*game.Game, error) {
	for _, g := range r.st.games {
		if g.DailyChallengeID == challengeID && g.UserID == userID {
			return r.gameCopy(g), nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no game for daily challenge %d", challengeID)
}

func (r *memRepo) ListGames(ctx context.Context, userID string, skip, take int) ([]*game.Game, error) {
	var out []*game.Game
	for i := len(r.st.games) - 1; i >= 0; i-- {
		if r.st.games[i].UserID != userID {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if len(out) == take {
			break
		}
		out = append(out, r.gameCopy(r.st.games[i]))
	}
	return out, nil
}

func (r *memRepo) SaveAttempt(ctx context.Context, g *game.Game) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if len(g.Attempts) == 0 {
		return apperr.New(apperr.Internal, "store: game has no attempt to save")
	}
	if g.ID < 1 || int(g.ID) > len(r.st.games) {
		return apperr.New(apperr.NotFound, "game %d not found", g.ID)
	}
	stored := &r.st.games[g.ID-1]
	if stored.Version != g.Version {
		return apperr.New(apperr.Conflict, "game %d was modified concurrently", g.ID)
	}

	r.st.nextAttempt++
	a := &g.Attempts[len(g.Attempts)-1]
	a.ID = r.st.nextAttempt
	a.GameID = g.ID

	stored.Attempts = append(stored.Attempts, *a)
	stored.Won = g.Won
	stored.Version++
	g.Version = stored.Version
	return nil
}

// ------------------------------- daily -------------------------------------

func (r *memRepo) challenge(match func(game.DailyChallenge) bool) (game.DailyChallenge, bool) {
	for _, dc := range r.st.challenges {
		if match(dc) {
			if w, ok := r.word(dc.WordID); ok {
				dc.Word = w.Text
			}
			return dc, true
		}
	}
	return game.DailyChallenge{}, false
}

func (r *memRepo) DailyChallengeByDate(ctx context.Context, date string) (game.DailyChallenge, error) {
	if dc, ok := r.challenge(func(dc game.DailyChallenge) bool { return dc.Date == date }); ok {
		return dc, nil
	}
	return game.DailyChallenge{}, apperr.New(apperr.NotFound, "no daily challenge for %s", date)
}

func (r *memRepo) DailyChallenge(ctx context.Context, id int64) (game.DailyChallenge, error) {
	if dc, ok := r.challenge(func(dc game.DailyChallenge) bool { return dc.ID == id }); ok {
		return dc, nil
	}
	return game.DailyChallenge{}, apperr.New(apperr.NotFound, "daily challenge %d not found", id)
}

func (r *memRepo) EnsureDailyChallenge(ctx context.Context, date string, wordID int64) (game.DailyChallenge, error) {
	if err := r.checkWrite(); err != nil {
		return game.DailyChallenge{}, err
	}
	if dc, err := r.DailyChallengeByDate(ctx, date); err == nil {
		return dc, nil
	}
	if _, ok := r.word(wordID); !ok {
		return game.DailyChallenge{}, apperr.New(apperr.NotFound, "word %d not found", wordID)
	}
	r.st.challenges = append(r.st.challenges, game.DailyChallenge{
		ID:     int64(len(r.st.challenges) + 1),
		Date:   date,
		WordID: wordID,
	})
	return r.DailyChallengeByDate(ctx, date)
}

func (r *memRepo) DailyStandings(ctx context.Context, challengeID int64, limit int) ([]daily.Standing, error) {
	var out []daily.Standing
	for _, g := range r.st.games {
		if g.DailyChallengeID != challengeID || !g.Won {
			continue
		}
		out = append(out, standingFromGame(r.st.users[g.UserID].Username, &g))
	}
	return limitStandings(out, limit), nil
}

// ---------------------------- achievements ---------------------------------

func (r *memRepo) UnlockedAchievements(ctx context.Context, userID string) (map[achievement.ID]time.Time, error) {
	out := make(map[achievement.ID]time.Time)
	for k, v := range r.st.unlocked[userID] {
		out[k] = v
	}
	return out, nil
}

func (r *memRepo) UserGames(ctx context.Context, userID string) ([]*game.Game, error) {
	var out []*game.Game
	for _, g := range r.st.games {
		if g.UserID == userID {
			out = append(out, r.gameCopy(g))
		}
	}
	return out, nil
}

func (r *memRepo) CountCategories(ctx context.Context) (int, error) {
	return len(r.st.categories), nil
}

func (r *memRepo) GrantAchievement(ctx context.Context, userID string, id achievement.ID, at time.Time) (bool, error) {
	if err := r.checkWrite(); err != nil {
		return false, err
	}
	set := r.st.unlocked[userID]
	if set == nil {
		set = make(map[achievement.ID]time.Time)
		r.st.unlocked[userID] = set
	}
	if _, ok := set[id]; ok {
		return false, nil
	}
	set[id] = at
	return true, nil
}

func (r *memRepo) CountAchievementHolders(ctx context.Context, id achievement.ID) (int, error) {
	n := 0
	for _, set := range r.st.unlocked {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountUsers(ctx context.Context) (int, error) {
	return len(r.st.users), nil
}

// ----------------------------- leaderboard ---------------------------------

func (r *memRepo) LeaderboardEntry(ctx context.Context, userID string) (leaderboard.Entry, bool, error) {
	e, ok := r.st.leaderboard[userID]
	if ok {
		e.Username = r.st.users[userID].Username
	}
	return e, ok, nil
}

func (r *memRepo) SaveLeaderboardEntry(ctx context.Context, e leaderboard.Entry) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	r.st.leaderboard[e.UserID] = e
	return nil
}

func (r *memRepo) WonGameAttemptCounts(ctx context.Context, userID string) ([]int, error) {
	var out []int
	for _, g := range r.st.games {
		if g.UserID == userID && g.Won {
			out = append(out, len(g.Attempts))
		}
	}
	return out, nil
}

func (r *memRepo) LeaderboardPage(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, error) {
	q = q.Normalize()
	filter := strings.ToLower(q.Filter)
	var all []leaderboard.Entry
	for id, e := range r.st.leaderboard {
		e.Username = r.st.users[id].Username
		if filter != "" && !strings.Contains(strings.ToLower(e.Username), filter) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	leaderboard.Sort(all)

	skip := q.Skip()
	if skip >= len(all) {
		return nil, nil
	}
	end := skip + q.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}
