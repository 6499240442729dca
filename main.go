package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/cache"
	"github.com/robalobadob/wordle-league/internal/config"
	"github.com/robalobadob/wordle-league/internal/daily"
	"github.com/robalobadob/wordle-league/internal/httpserver"
	"github.com/robalobadob/wordle-league/internal/leaderboard"
	"github.com/robalobadob/wordle-league/internal/logging"
	"github.com/robalobadob/wordle-league/internal/metrics"
	"github.com/robalobadob/wordle-league/internal/service"
	"github.com/robalobadob/wordle-league/internal/store"
	"github.com/robalobadob/wordle-league/internal/words"
)

func main() {
	app := &cli.App{
		Name:  "wordle-league",
		Usage: "Wordle game server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and seed the word lists",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("wordle-league exited")
	}
}

// setup loads configuration and installs the logger.
func setup(c *cli.Context) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger, closer, err := logging.Setup(cfg.Log, cfg.Production())
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, logger, closer, nil
}

// openStore returns SQLite when a path is configured, memory otherwise,
// along with a reachability probe for /health.
func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, func(context.Context) error, error) {
	if cfg.DBPath == "" {
		logger.Warn().Msg("DB_PATH is empty, state is kept in memory only")
		return store.NewMemory(), nil, nil
	}
	db, err := store.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, db.DB().PingContext, nil
}

func serve(c *cli.Context) error {
	cfg, logger, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	dict, err := words.Load(cfg.Words.AnswersFile, cfg.Words.AllowedFile)
	if err != nil {
		return fmt.Errorf("load word lists: %w", err)
	}

	st, health, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Seed(c.Context, st, dict); err != nil {
		return err
	}

	seed := cfg.Daily.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	var selector daily.Selector = daily.NewRandomSelector(rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	if cfg.Daily.Salt != "" {
		selector = daily.SaltedSelector{Salt: cfg.Daily.Salt}
	}

	var lbCache leaderboard.Cache = leaderboard.NopCache{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(c.Context, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, leaderboard cache disabled")
		} else {
			defer rdb.Close()
			lbCache = cache.NewLeaderboard(rdb, "wordle:", cfg.Redis.CacheTTL, logger)
		}
	}

	rec := metrics.New("wordle")
	authSvc := auth.NewService(store.Users(st), auth.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.JWT.TTL,
	})
	games := service.New(service.Deps{
		Store:    st,
		Words:    dict,
		Selector: selector,
		Cache:    lbCache,
		Metrics:  rec,
		Log:      logger,
		Rand:     rng,
	})

	srv := httpserver.New(httpserver.Deps{
		Games:   games,
		Auth:    authSvc,
		Metrics: rec,
		Health:  health,
		Log:     logger,
		Opts: httpserver.Options{
			ClientOrigin:       cfg.ClientOrigin,
			CookieName:         cfg.JWT.CookieName,
			SecureCookies:      cfg.Production(),
			RequestTimeout:     cfg.RequestTimeout,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		},
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	answers, allowed := games.WordStats()
	logger.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Bool("sqlite", cfg.DBPath != "").
		Bool("redis", cfg.Redis.Addr != "").
		Int("answers", answers).
		Int("allowed", allowed).
		Msg("starting wordle-league")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, logger, closer, err := setup(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.DBPath == "" {
		return fmt.Errorf("migrate: DB_PATH is not set")
	}
	dict, err := words.Load(cfg.Words.AnswersFile, cfg.Words.AllowedFile)
	if err != nil {
		return fmt.Errorf("load word lists: %w", err)
	}
	db, err := store.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	if err := store.Seed(c.Context, db, dict); err != nil {
		return err
	}
	logger.Info().
		Str("path", cfg.DBPath).
		Int("answers", len(dict.Answers())).
		Int("categories", len(dict.Categories())).
		Msg("database migrated and seeded")
	return nil
}
