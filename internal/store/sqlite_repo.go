package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/robalobadob/wordle-league/internal/achievement"
	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/game"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlRepo struct {
	q        queryer
	writable bool
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// parseTime returns the zero time on malformed input.
func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func (r *sqlRepo) checkWrite() error {
	if !r.writable {
		return errReadOnly
	}
	return nil
}

// notFound maps sql.ErrNoRows to apperr.NotFound.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.NotFound, format, args...)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (r *sqlRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// ------------------------------ catalog ------------------------------------

func (r *sqlRepo) UpsertCategory(ctx context.Context, c game.Category) (int64, error) {
	if err := r.checkWrite(); err != nil {
		return 0, err
	}
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO categories(name, description) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET description = excluded.description`,
		c.Name, c.Description); err != nil {
		return 0, err
	}
	var id int64
	err := r.q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, c.Name).Scan(&id)
	return id, err
}

func (r *sqlRepo) UpsertWord(ctx context.Context, text string, categoryID int64) (int64, error) {
	if err := r.checkWrite(); err != nil {
		return 0, err
	}
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO words(text, category_id) VALUES (?, ?)
		ON CONFLICT(text) DO UPDATE SET category_id = excluded.category_id`,
		text, categoryID); err != nil {
		return 0, err
	}
	var id int64
	err := r.q.QueryRowContext(ctx, `SELECT id FROM words WHERE text = ?`, text).Scan(&id)
	return id, err
}

func (r *sqlRepo) UpsertAchievement(ctx context.Context, a achievement.Achievement) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO achievements(id, name, description) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description`,
		int64(a.ID), a.Name, a.Description)
	return err
}

func (r *sqlRepo) Categories(ctx context.Context) ([]game.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []game.Category
	for rows.Next() {
		var c game.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *sqlRepo) CategoryByName(ctx context.Context, name string) (game.Category, error) {
	var c game.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, description FROM categories WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&c.ID, &c.Name, &c.Description)
	return c, notFound(err, "category %q not found", name)
}

func (r *sqlRepo) CountWords(ctx context.Context, categoryID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM words WHERE (? = 0 OR category_id = ?)`, categoryID, categoryID)
}

func (r *sqlRepo) WordAt(ctx context.Context, categoryID int64, offset int) (game.Word, error) {
	var w game.Word
	err := r.q.QueryRowContext(ctx, `
		SELECT w.id, w.text, w.category_id, c.name
		FROM words w JOIN categories c ON c.id = w.category_id
		WHERE (? = 0 OR w.category_id = ?)
		ORDER BY w.id
		LIMIT 1 OFFSET ?`, categoryID, categoryID, offset,
	).Scan(&w.ID, &w.Text, &w.CategoryID, &w.Category)
	return w, notFound(err, "no word at offset %d", offset)
}

// ------------------------------ accounts -----------------------------------

func (r *sqlRepo) CreateUser(ctx context.Context, u auth.User, s game.Settings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return apperr.New(apperr.Conflict, "username or email already taken")
	}
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO settings (user_id, dark_mode, hard_mode, high_contrast_mode, show_hints)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, s.DarkMode, s.HardMode, s.HighContrastMode, s.ShowHints)
	return err
}

const userColumns = `SELECT id, username, email, password_hash, created_at FROM users`

func scanUser(row *sql.Row) (auth.User, error) {
	var u auth.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		return auth.User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (r *sqlRepo) UserByID(ctx context.Context, id string) (auth.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, userColumns+` WHERE id = ?`, id))
	return u, notFound(err, "user %s not found", id)
}

func (r *sqlRepo) UserByLogin(ctx context.Context, login string) (auth.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, userColumns+` WHERE username = ? OR email = ?`, login, login))
	return u, notFound(err, "user %s not found", login)
}

func (r *sqlRepo) Settings(ctx context.Context, userID string) (game.Settings, error) {
	var s game.Settings
	err := r.q.QueryRowContext(ctx, `
		SELECT dark_mode, hard_mode, high_contrast_mode, show_hints
		FROM settings WHERE user_id = ?`, userID,
	).Scan(&s.DarkMode, &s.HardMode, &s.HighContrastMode, &s.ShowHints)
	return s, notFound(err, "settings for user %s not found", userID)
}

func (r *sqlRepo) SaveSettings(ctx context.Context, userID string, s game.Settings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE settings SET dark_mode = ?, hard_mode = ?, high_contrast_mode = ?, show_hints = ?
		WHERE user_id = ?`,
		s.DarkMode, s.HardMode, s.HighContrastMode, s.ShowHints, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "settings for user %s not found", userID)
	}
	return nil
}

// ------------------------------- games -------------------------------------

const gameColumns = `
	SELECT g.id, g.user_id, g.word_id, w.text, w.category_id, c.name,
	       COALESCE(g.daily_challenge_id, 0), g.hard_mode, g.hints, g.won, g.version, g.created_at
	FROM games g
	JOIN words w ON w.id = g.word_id
	JOIN categories c ON c.id = w.category_id`

func scanGame(sc interface{ Scan(...any) error }) (*game.Game, error) {
	var g game.Game
	var created string
	if err := sc.Scan(&g.ID, &g.UserID, &g.WordID, &g.Word, &g.CategoryID, &g.Category,
		&g.DailyChallengeID, &g.HardMode, &g.Hints, &g.Won, &g.Version, &created); err != nil {
		return nil, err
	}
	g.CreatedAt = parseTime(created)
	return &g, nil
}

func (r *sqlRepo) CreateGame(ctx context.Context, g *game.Game) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	dc := sql.NullInt64{Int64: g.DailyChallengeID, Valid: g.DailyChallengeID != 0}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO games (user_id, word_id, daily_challenge_id, hard_mode, hints, won, version, created_at)
		VALUES (?, ?, ?, ?, ?, 0, 1, ?)`,
		g.UserID, g.WordID, dc, g.HardMode, g.Hints, formatTime(g.CreatedAt))
	if isUniqueViolation(err) {
		return apperr.New(apperr.Conflict, "daily challenge %d already has a game for this user", g.DailyChallengeID)
	}
	if err != nil {
		return err
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	g.Version = 1
	g.Won = false
	g.Attempts = nil
	return nil
}

// queryGames runs a gameColumns query and attaches attempts.
func (r *sqlRepo) queryGames(ctx context.Context, where string, args ...any) ([]*game.Game, error) {
	rows, err := r.q.QueryContext(ctx, gameColumns+" "+where, args...)
	if err != nil {
		return nil, err
	}
	var games []*game.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachAttempts(ctx, games); err != nil {
		return nil, err
	}
	return games, nil
}

func (r *sqlRepo) attachAttempts(ctx context.Context, games []*game.Game) error {
	if len(games) == 0 {
		return nil
	}
	byID := make(map[int64]*game.Game, len(games))
	marks := make([]string, 0, len(games))
	args := make([]any, 0, len(games))
	for _, g := range games {
		byID[g.ID] = g
		marks = append(marks, "?")
		args = append(args, g.ID)
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, game_id, word, attempted_at FROM attempts WHERE game_id IN (`+
			strings.Join(marks, ",")+`) ORDER BY id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a game.Attempt
		var at string
		if err := rows.Scan(&a.ID, &a.GameID, &a.Word, &at); err != nil {
			return err
		}
		a.AttemptedAt = parseTime(at)
		if g := byID[a.GameID]; g != nil {
			g.Attempts = append(g.Attempts, a)
		}
	}
	return rows.Err()
}

func (r *sqlRepo) oneGame(ctx context.Context, msg string, where string, args ...any) (*game.Game, error) {
	gs, err := r.queryGames(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return nil, apperr.New(apperr.NotFound, "%s", msg)
	}
	return gs[0], nil
}

func (r *sqlRepo) Game(ctx context.Context, id int64, userID string) (*game.Game, error) {
	return r.oneGame(ctx, fmt.Sprintf("game %d not found", id),
		`WHERE g.id = ? AND g.user_id = ?`, id, userID)
}

func (r *sqlRepo) GameForChallenge(ctx context.Context, challengeID int64, userID string) (*game.Game, error) {
	return r.oneGame(ctx, fmt.Sprintf("no game for daily challenge %d", challengeID),
		`WHERE g.daily_challenge_id = ? AND g.user_id = ?`, challengeID, userID)
}

func (r *sqlRepo) ListGames(ctx context.Context, userID string, skip, take int) ([]*game.Game, error) {
	return r.queryGames(ctx, `WHERE g.user_id = ? ORDER BY g.id DESC LIMIT ? OFFSET ?`, userID, take, skip)
}

func (r *sqlRepo) SaveAttempt(ctx context.Context, g *game.Game) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if len(g.Attempts) == 0 {
		return errors.New("store: game has no attempt to save")
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE games SET won = ?, version = version + 1 WHERE id = ? AND version = ?`,
		g.Won, g.ID, g.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.Conflict, "game %d was modified concurrently", g.ID)
	}

	a := &g.Attempts[len(g.Attempts)-1]
	a.GameID = g.ID
	res, err = r.q.ExecContext(ctx,
		`INSERT INTO attempts (game_id, word, attempted_at) VALUES (?, ?, ?)`,
		g.ID, a.Word, formatTime(a.AttemptedAt))
	if err != nil {
		return err
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	g.Version++
	return nil
}

// ------------------------------- daily -------------------------------------

const challengeColumns = `
	SELECT d.id, d.date, d.word_id, w.text
	FROM daily_challenges d JOIN words w ON w.id = d.word_id`

func scanChallenge(row *sql.Row) (game.DailyChallenge, error) {
	var dc game.DailyChallenge
	err := row.Scan(&dc.ID, &dc.Date, &dc.WordID, &dc.Word)
	return dc, err
}

func (r *sqlRepo) DailyChallengeByDate(ctx context.Context, date string) (game.DailyChallenge, error) {
	dc, err := scanChallenge(r.q.QueryRowContext(ctx, challengeColumns+` WHERE d.date = ?`, date))
	return dc, notFound(err, "no daily challenge for %s", date)
}

func (r *sqlRepo) DailyChallenge(ctx context.Context, id int64) (game.DailyChallenge, error) {
	dc, err := scanChallenge(r.q.QueryRowContext(ctx, challengeColumns+` WHERE d.id = ?`, id))
	return dc, notFound(err, "daily challenge %d not found", id)
}

func (r *sqlRepo) EnsureDailyChallenge(ctx context.Context, date string, wordID int64) (game.DailyChallenge, error) {
	if err := r.checkWrite(); err != nil {
		return game.DailyChallenge{}, err
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_challenges (date, word_id) VALUES (?, ?)`, date, wordID); err != nil {
		return game.DailyChallenge{}, err
	}
	return r.DailyChallengeByDate(ctx, date)
}

func (r *sqlRepo) DailyStandings(ctx context.Context, challengeID int64, limit int) ([]daily.Standing, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT g.id, u.username, g.created_at
		FROM games g JOIN users u ON u.id = g.user_id
		WHERE g.daily_challenge_id = ? AND g.won = 1`, challengeID)
	if err != nil {
		return nil, err
	}
	var games []*game.Game
	names := make(map[int64]string)
	for rows.Next() {
		var g game.Game
		var name, created string
		if err := rows.Scan(&g.ID, &name, &created); err != nil {
			rows.Close()
			return nil, err
		}
		g.CreatedAt = parseTime(created)
		names[g.ID] = name
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachAttempts(ctx, games); err != nil {
		return nil, err
	}
	out := make([]daily.Standing, 0, len(games))
	for _, g := range games {
		out = append(out, standingFromGame(names[g.ID], g))
	}
	return limitStandings(out, limit), nil
}

// ---------------------------- achievements ---------------------------------

func (r *sqlRepo) UnlockedAchievements(ctx context.Context, userID string) (map[achievement.ID]time.Time, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT achievement_id, date_achieved FROM user_achievements WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[achievement.ID]time.Time)
	for rows.Next() {
		var id int64
		var at string
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[achievement.ID(id)] = parseTime(at)
	}
	return out, rows.Err()
}

func (r *sqlRepo) UserGames(ctx context.Context, userID string) ([]*game.Game, error) {
	return r.queryGames(ctx, `WHERE g.user_id = ? ORDER BY g.id`, userID)
}

func (r *sqlRepo) CountCategories(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM categories`)
}

func (r *sqlRepo) GrantAchievement(ctx context.Context, userID string, id achievement.ID, at time.Time) (bool, error) {
	if err := r.checkWrite(); err != nil {
		return false, err
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, date_achieved)
		VALUES (?, ?, ?)`, userID, int64(id), formatTime(at))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *sqlRepo) CountAchievementHolders(ctx context.Context, id achievement.ID) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM user_achievements WHERE achievement_id = ?`, int64(id))
}

func (r *sqlRepo) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(1) FROM users`)
}

// ----------------------------- leaderboard ---------------------------------

const leaderboardColumns = `
	SELECT l.user_id, u.username, l.games_played, l.games_won,
	       l.win_percentage, l.average_guesses, l.points
	FROM leaderboard l JOIN users u ON u.id = l.user_id`

func scanEntry(sc interface{ Scan(...any) error }) (leaderboard.Entry, error) {
	var e leaderboard.Entry
	err := sc.Scan(&e.UserID, &e.Username, &e.GamesPlayed, &e.GamesWon,
		&e.WinPercentage, &e.AverageGuesses, &e.Points)
	return e, err
}

func (r *sqlRepo) LeaderboardEntry(ctx context.Context, userID string) (leaderboard.Entry, bool, error) {
	e, err := scanEntry(r.q.QueryRowContext(ctx, leaderboardColumns+` WHERE l.user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return leaderboard.Entry{}, false, nil
	}
	if err != nil {
		return leaderboard.Entry{}, false, err
	}
	return e, true, nil
}

func (r *sqlRepo) SaveLeaderboardEntry(ctx context.Context, e leaderboard.Entry) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO leaderboard (user_id, games_played, games_won, win_percentage, average_guesses, points)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			games_played = excluded.games_played,
			games_won = excluded.games_won,
			win_percentage = excluded.win_percentage,
			average_guesses = excluded.average_guesses,
			points = excluded.points`,
		e.UserID, e.GamesPlayed, e.GamesWon, e.WinPercentage, e.AverageGuesses, e.Points)
	return err
}

func (r *sqlRepo) WonGameAttemptCounts(ctx context.Context, userID string) ([]int, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT COUNT(a.id)
		FROM games g JOIN attempts a ON a.game_id = g.id
		WHERE g.user_id = ? AND g.won = 1
		GROUP BY g.id
		ORDER BY g.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *sqlRepo) LeaderboardPage(ctx context.Context, q leaderboard.Query) ([]leaderboard.Entry, error) {
	q = q.Normalize()
	rows, err := r.q.QueryContext(ctx, leaderboardColumns+`
		WHERE (? = '' OR instr(lower(u.username), lower(?)) > 0)
		ORDER BY l.points DESC, l.win_percentage DESC, l.average_guesses ASC, u.username ASC
		LIMIT ? OFFSET ?`, q.Filter, q.Filter, q.PageSize, q.Skip())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []leaderboard.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
