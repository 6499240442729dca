// Package cache keeps rendered leaderboard pages in Redis.
//
// Pages are stored under a generation number. Invalidate bumps the
// generation, which orphans every page at once; orphans expire by TTL.
// Every Redis failure is logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle-league/internal/leaderboard"
)

const opTimeout = 500 * time.Millisecond

// NewClient dials Redis and pings it once.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Leaderboard implements leaderboard.Cache.
type Leaderboard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewLeaderboard caches pages under prefix for ttl.
func NewLeaderboard(rdb *redis.Client, prefix string, ttl time.Duration, log zerolog.Logger) *Leaderboard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Leaderboard{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

var _ leaderboard.Cache = (*Leaderboard)(nil)

func (c *Leaderboard) genKey() string { return c.prefix + "leaderboard:gen" }

func (c *Leaderboard) generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Leaderboard) pageKey(gen int64, key string) string {
	return c.prefix + "leaderboard:" + strconv.FormatInt(gen, 10) + ":" + key
}

func (c *Leaderboard) Get(ctx context.Context, key string) ([]leaderboard.View, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("leaderboard cache: read generation")
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.pageKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("leaderboard cache: get")
		return nil, false
	}
	var views []leaderboard.View
	if err := json.Unmarshal(raw, &views); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("leaderboard cache: decode")
		return nil, false
	}
	return views, true
}

func (c *Leaderboard) Set(ctx context.Context, key string, views []leaderboard.View) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("leaderboard cache: read generation")
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.pageKey(gen, key), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("leaderboard cache: set")
	}
}

func (c *Leaderboard) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		c.log.Warn().Err(err).Msg("leaderboard cache: invalidate")
	}
}
