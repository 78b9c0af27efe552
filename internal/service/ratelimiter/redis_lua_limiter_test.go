package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, pool StatePool, buckets map[string]BucketConfig) (*RedisLuaLimiter, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLuaLimiter(rdb, pool, buckets), rdb
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	assert.Equal(t, BucketConfig{}, NewBucketConfigFromPerMinute(0))
	cfg := NewBucketConfigFromPerMinute(30)
	assert.Equal(t, int64(30), cfg.Capacity)
	assert.InDelta(t, 0.5, cfg.RefillRate, 1e-9)
	assert.Equal(t, "synthesis:alice", Key(BucketSynthesis, "alice"))
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLuaLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	assert.Nil(t, NewRedisLuaLimiter(nil, nil, nil))
}

func TestAllow_UnknownBucket_FailOpen(t *testing.T) {
	limiter, _ := newTestLimiter(t, nil, nil)
	allowed, retryAfter, err := limiter.Allow(context.Background(), "unknown:alice", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestAllow_PerSubjectBuckets(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, nil, map[string]BucketConfig{
		BucketSynthesis: {Capacity: 2, RefillRate: 0.5},
	})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, Key(BucketSynthesis, "alice"), 1)
		require.NoError(t, err)
		require.True(t, allowed, "call %d", i)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, Key(BucketSynthesis, "alice"), 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2*time.Second, retryAfter)

	// another user has an independent bucket
	allowed, _, err = limiter.Allow(ctx, Key(BucketSynthesis, "bob"), 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	// tokens refill over time
	now = now.Add(2 * time.Second)
	allowed, _, err = limiter.Allow(ctx, Key(BucketSynthesis, "alice"), 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_SetBucketConfig(t *testing.T) {
	limiter, _ := newTestLimiter(t, nil, nil)
	limiter.SetBucketConfig(BucketSynthesis, BucketConfig{Capacity: 1, RefillRate: 0.001})

	allowed, _, err := limiter.Allow(context.Background(), Key(BucketSynthesis, "carol"), 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, retryAfter, err := limiter.Allow(context.Background(), Key(BucketSynthesis, "carol"), 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	var nilLimiter *RedisLuaLimiter
	nilLimiter.SetBucketConfig("x", BucketConfig{})
}

func TestAllow_RedisDown_FailsOpen(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := NewRedisLuaLimiter(rdb, nil, map[string]BucketConfig{BucketSynthesis: {Capacity: 1, RefillRate: 1}})
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), Key(BucketSynthesis, "alice"), 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestAllow_MirrorsToPostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	limiter, _ := newTestLimiter(t, mock, map[string]BucketConfig{BucketSynthesis: {Capacity: 5, RefillRate: 1}})
	mock.ExpectExec("INSERT INTO rate_limit_buckets").
		WithArgs("synthesis:alice", int64(5), 1.0, 4.0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	allowed, _, err := limiter.Allow(context.Background(), Key(BucketSynthesis, "alice"), 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWarmFromPostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	limiter, rdb := newTestLimiter(t, mock, map[string]BucketConfig{BucketSynthesis: {Capacity: 10, RefillRate: 0.1}})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	mock.ExpectQuery("SELECT bucket_key, tokens, last_refill FROM rate_limit_buckets").
		WillReturnRows(pgxmock.NewRows([]string{"bucket_key", "tokens", "last_refill"}).
			AddRow("synthesis:alice", 1.0, now.Add(-time.Second)).
			AddRow("synthesis:bob", 9.0, now.Add(-time.Hour)).
			AddRow("legacy:carol", 0.0, now))

	require.NoError(t, limiter.WarmFromPostgres(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	ctx := context.Background()
	assert.Equal(t, int64(1), rdb.Exists(ctx, "rate:synthesis:alice").Val())
	assert.Zero(t, rdb.Exists(ctx, "rate:synthesis:bob").Val())
	assert.Zero(t, rdb.Exists(ctx, "rate:legacy:carol").Val())

	assert.NoError(t, (&RedisLuaLimiter{}).WarmFromPostgres(ctx))
}
