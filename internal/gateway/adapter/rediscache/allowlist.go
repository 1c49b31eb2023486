// Package rediscache caches allow-list lookups in Redis.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"observe/internal/gateway"
)

const keyPrefix = "observe:allow:"

// AllowList answers origin lookups from Redis and falls back to the wrapped
// allow-list on a miss. Redis failures are logged and bypass the cache.
type AllowList struct {
	next   gateway.AllowList
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewAllowList wraps next with a Redis cache whose entries live for ttl.
func NewAllowList(next gateway.AllowList, client *redis.Client, ttl time.Duration, logger *slog.Logger) *AllowList {
	if logger == nil {
		logger = slog.Default()
	}
	return &AllowList{next: next, client: client, ttl: ttl, logger: logger}
}

// Allowed implements gateway.AllowList.
func (a *AllowList) Allowed(ctx context.Context, origin string) (bool, error) {
	key := keyPrefix + origin
	v, err := a.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return v == "1", nil
	case !errors.Is(err, redis.Nil):
		a.logger.WarnContext(ctx, "allow-list cache read failed", "origin", origin, "error", err)
	}

	ok, err := a.next.Allowed(ctx, origin)
	if err != nil {
		return false, err
	}
	v = "0"
	if ok {
		v = "1"
	}
	if err := a.client.Set(ctx, key, v, a.ttl).Err(); err != nil {
		a.logger.WarnContext(ctx, "allow-list cache write failed", "origin", origin, "error", err)
	}
	return ok, nil
}

// Invalidate drops every cached lookup. Call it after the allow-list changes.
func (a *AllowList) Invalidate(ctx context.Context) error {
	iter := a.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning allow-list cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := a.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing allow-list cache: %w", err)
	}
	return nil
}
