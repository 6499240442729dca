// Package config loads server settings.
//
// Sources, later ones winning: built-in defaults, an optional YAML file,
// a .env file in the working directory, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DevSecret is the signing key used when none is configured.
const DevSecret = "dev_secret_change_me"

type Config struct {
	Port           string        `yaml:"port" env:"PORT"`
	Env            string        `yaml:"env" env:"NODE_ENV"`
	ClientOrigin   string        `yaml:"client_origin" env:"CLIENT_ORIGIN"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	// RateLimitPerMinute caps auth and attempt requests per client IP.
	// Zero disables limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE"`

	// DBPath is the SQLite file. Empty keeps everything in memory.
	DBPath string `yaml:"db_path" env:"DB_PATH"`

	JWT   JWTConfig   `yaml:"jwt"`
	Log   LogConfig   `yaml:"log"`
	Words WordsConfig `yaml:"words"`
	Daily DailyConfig `yaml:"daily"`
	Redis RedisConfig `yaml:"redis"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	TTL        time.Duration `yaml:"ttl" env:"JWT_TTL"`
	CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"LOG_COMPRESS"`
}

type WordsConfig struct {
	AnswersFile string `yaml:"answers_file" env:"WORDS_ANSWERS_FILE"`
	AllowedFile string `yaml:"allowed_file" env:"WORDS_ALLOWED_FILE"`
}

type DailyConfig struct {
	// Salt makes the daily word a pure function of the date. When empty the
	// word is drawn at random the first time a day is requested.
	Salt string `yaml:"salt" env:"DAILY_SALT"`
	// RandomSeed seeds word selection; zero seeds from the clock.
	RandomSeed uint64 `yaml:"random_seed" env:"RANDOM_SEED"`
}

type RedisConfig struct {
	// Addr enables the leaderboard cache.
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"LEADERBOARD_CACHE_TTL"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Port:               "5175",
		Env:                "development",
		ClientOrigin:       "http://localhost:5173",
		RequestTimeout:     10 * time.Second,
		RateLimitPerMinute: 60,
		DBPath:             "./data/wordle.db",
		JWT: JWTConfig{
			Secret:     DevSecret,
			TTL:        48 * time.Hour,
			CookieName: "wordle_token",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Redis: RedisConfig{CacheTTL: time.Minute},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv overlays environment variables onto target. Fields whose
// variable is unset keep their value.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Production reports whether NODE_ENV is "production".
func (c *Config) Production() bool { return c.Env == "production" }

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Production() && c.JWT.Secret == DevSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
