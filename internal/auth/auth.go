// internal/auth/auth.go
//
// User registration, login and JWT handling.
// Responsibilities:
//   - Validate signup input and hash passwords with bcrypt.
//   - Authenticate by username or email.
//   - Issue, verify and refresh HS256 tokens carrying id/username claims.
//
// Persistence is behind UserStore; new users are created together with
// their default settings.

package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordle-league/internal/apperr"
	"github.com/robalobadob/wordle-league/internal/game"
)

// User is an account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserStore persists accounts. CreateUser returns an apperr.Conflict error
// when the username or email is taken; lookups return apperr.NotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u User, s game.Settings) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByLogin(ctx context.Context, login string) (User, error)
}

// Config controls token lifetime and hashing cost.
type Config struct {
	Secret        string
	TTL           time.Duration
	RefreshWindow time.Duration
	BcryptCost    int
}

// Claims is the token payload.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Token is a signed token and its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service implements the account operations.
type Service struct {
	users         UserStore
	secret        []byte
	ttl           time.Duration
	refreshWindow time.Duration
	cost          int
	now           func() time.Time
}

// NewService applies defaults: 48h tokens refreshable in their last 24h.
func NewService(users UserStore, cfg Config) *Service {
	s := &Service{
		users:         users,
		secret:        []byte(cfg.Secret),
		ttl:           cfg.TTL,
		refreshWindow: cfg.RefreshWindow,
		cost:          cfg.BcryptCost,
		now:           time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 48 * time.Hour
	}
	if s.refreshWindow <= 0 {
		s.refreshWindow = 24 * time.Hour
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Username string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register validates input, hashes the password and stores the user with
// default settings.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := normalizeUsername(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateSignup(username, email, in.Password); err != nil {
		return User{}, apperr.New(apperr.Invalid, "%s", err.Error())
	}
	h, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(h),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u, game.DefaultSettings()); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login authenticates by username or email.
func (s *Service) Login(ctx context.Context, login, password string) (User, error) {
	u, err := s.users.UserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return User{}, apperr.New(apperr.Unauthorized, "invalid login or password")
		}
		return User{}, err
	}
	if !checkPassword(u.PasswordHash, password) {
		return User{}, apperr.New(apperr.Unauthorized, "invalid login or password")
	}
	return u, nil
}

// Issue signs a token for u.
func (s *Service) Issue(u User) (Token, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString(s.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: ss, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Verify parses a token and checks the user still exists.
func (s *Service) Verify(ctx context.Context, token string) (Claims, error) {
	var c Claims
	t, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return Claims{}, apperr.New(apperr.Unauthorized, "invalid token")
	}
	if c.UserID == "" || c.Username == "" {
		return Claims{}, apperr.New(apperr.Unauthorized, "invalid token")
	}
	if _, err := s.users.UserByID(ctx, c.UserID); err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return Claims{}, apperr.New(apperr.Unauthorized, "invalid token")
		}
		return Claims{}, err
	}
	return c, nil
}

// Refresh exchanges a valid token that expires within the refresh window
// for a new one.
func (s *Service) Refresh(ctx context.Context, token string) (Token, error) {
	c, err := s.Verify(ctx, token)
	if err != nil {
		return Token{}, err
	}
	if c.ExpiresAt == nil || c.ExpiresAt.Sub(s.now()) > s.refreshWindow {
		return Token{}, apperr.New(apperr.Invalid, "token is not close to expiry")
	}
	u, err := s.users.UserByID(ctx, c.UserID)
	if err != nil {
		return Token{}, err
	}
	return s.Issue(u)
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/email/password rules.
func validateSignup(u, email, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return errors.New("email is not valid")
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8–100 chars")
	}
	return nil
}
