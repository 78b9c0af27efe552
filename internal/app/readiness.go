// Package app wires application components and startup helpers.
package app

import (
	"context"
	"fmt"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPingResult is the minimal return type of a Redis client's Ping.
type RedisPingResult interface{ Err() error }

// RedisClient is the minimal interface for a Redis client needed for readiness.
type RedisClient interface{ Ping(ctx context.Context) RedisPingResult }

// StorageProber reports whether the object store is reachable.
type StorageProber interface{ Ready(ctx context.Context) error }

// BuildReadinessChecks returns the db, redis and storage readiness checks.
func BuildReadinessChecks(pool Pinger, rdb RedisClient, store StorageProber) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck := func(ctx context.Context) error {
		if rdb == nil {
			return fmt.Errorf("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
	storageCheck := func(ctx context.Context) error {
		if store == nil {
			return fmt.Errorf("storage not configured")
		}
		return store.Ready(ctx)
	}
	return dbCheck, redisCheck, storageCheck
}
