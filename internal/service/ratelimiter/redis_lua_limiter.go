// Package ratelimiter implements per-user quotas as Redis token buckets.
//
// Keys have the form "<bucket>:<subject>", e.g. "synthesis:alice". The
// bucket name selects the capacity and refill rate; every subject gets its
// own bucket state in Redis. Bucket state can be mirrored to Postgres so a
// Redis restart does not hand every user a full bucket.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// Limiter reports whether a request costing cost tokens may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketSynthesis is the bucket consumed by speech generation.
const BucketSynthesis = "synthesis"

// Key builds a limiter key for subject within bucket.
func Key(bucket, subject string) string { return bucket + ":" + subject }

type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

// StatePool is the subset of pgxpool.Pool used to mirror bucket state.
type StatePool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RedisLuaLimiter struct {
	redis   redis.Cmdable
	pool    StatePool
	buckets map[string]BucketConfig
	script  *redis.Script
	now     func() time.Time
	mu      sync.RWMutex
}

func NewRedisLuaLimiter(rdb redis.Cmdable, pool StatePool, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		pool:    pool,
		buckets: buckets,
		script:  redis.NewScript(luaTokenBucketScript),
		now:     time.Now,
	}
}

// Times are exchanged in milliseconds and token counts in thousandths
// because Redis truncates Lua numbers to integers in replies.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then
  tokens = tonumber(data[1])
end
if data[2] then
  last_refill = tonumber(data[2])
end

local delta = (now - last_refill) / 1000
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  retry_after = math.ceil((cost - tokens) / refill_rate * 1000)
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("PEXPIRE", key, ttl)

return { allowed, math.floor(tokens * 1000), now, retry_after }
`

func bucketOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[bucketOf(key)]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowMs := l.now().UnixMilli()
	// state expires once a full bucket would have refilled
	ttlMs := int64(math.Ceil(float64(cfg.Capacity)/cfg.RefillRate*1000)) + 1000

	res, err := l.script.Run(ctx, l.redis, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowMs, cost, ttlMs).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		// Fail open on Redis errors; the caller decides whether to log.
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 4 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	tokens := float64(toInt64(vals[1])) / 1000
	lastRefill := time.UnixMilli(toInt64(vals[2]))
	retryAfter := time.Duration(toInt64(vals[3])) * time.Millisecond

	if l.pool != nil {
		l.mirrorToPostgres(ctx, key, cfg, tokens, lastRefill)
	}

	return allowed, retryAfter, nil
}

func (l *RedisLuaLimiter) mirrorToPostgres(ctx context.Context, key string, cfg BucketConfig, tokens float64, lastRefill time.Time) {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO rate_limit_buckets (bucket_key, capacity, refill_rate, tokens, last_refill)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (bucket_key) DO UPDATE SET
		   capacity = EXCLUDED.capacity,
		   refill_rate = EXCLUDED.refill_rate,
		   tokens = EXCLUDED.tokens,
		   last_refill = EXCLUDED.last_refill`,
		key, cfg.Capacity, cfg.RefillRate, tokens, lastRefill,
	)
	if err != nil {
		slog.Error("failed to mirror rate limit bucket to postgres", slog.String("key", key), slog.Any("error", err))
	}
}

// WarmFromPostgres restores mirrored bucket state into Redis. Rows whose
// bucket would be full again by now are skipped.
func (l *RedisLuaLimiter) WarmFromPostgres(ctx context.Context) error {
	if l == nil || l.pool == nil || l.redis == nil {
		return nil
	}

	rows, err := l.pool.Query(ctx, `SELECT bucket_key, tokens, last_refill FROM rate_limit_buckets`)
	if err != nil {
		return err
	}
	defer rows.Close()

	now := l.now()
	for rows.Next() {
		var key string
		var tokens float64
		var lastRefill time.Time
		if err := rows.Scan(&key, &tokens, &lastRefill); err != nil {
			return err
		}
		l.mu.RLock()
		cfg, ok := l.buckets[bucketOf(key)]
		l.mu.RUnlock()
		if !ok || cfg.RefillRate <= 0 {
			continue
		}
		if tokens+now.Sub(lastRefill).Seconds()*cfg.RefillRate >= float64(cfg.Capacity) {
			continue
		}
		if err := l.redis.HSet(ctx, "rate:"+key, "tokens", tokens, "last_refill", lastRefill.UnixMilli()).Err(); err != nil {
			slog.Error("failed to warm Redis bucket from postgres", slog.String("key", key), slog.Any("error", err))
		}
	}
	return rows.Err()
}

// SetBucketConfig updates or creates the configuration for a bucket name.
// It is safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(bucket string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		l.buckets = map[string]BucketConfig{}
	}
	l.buckets[bucket] = cfg
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
