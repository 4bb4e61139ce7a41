// Package cache is a thin Redis wrapper used to memoize computed availability.
// Entries carry a short TTL and a per-business version that booking writes
// bump, so a cached day never survives a new booking.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// NewFromEnv connects using REDIS_ADDR. Returns nil (caching disabled) when
// the variable is unset or the server is unreachable; availability falls back
// to computing every request.
func NewFromEnv() *Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, availability cache disabled")
		return nil
	}
	log.Info().Str("addr", addr).Msg("connected to redis")
	return New(client)
}

func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *Cache) Set(ctx context.Context, key string, val any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func versionKey(businessID uint) string {
	return fmt.Sprintf("avail:ver:%d", businessID)
}

// Version returns the current availability version for a business.
func (c *Cache) Version(ctx context.Context, businessID uint) int64 {
	if c == nil {
		return 0
	}
	v, err := c.client.Get(ctx, versionKey(businessID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Bump invalidates every cached availability entry for the business by
// advancing its version.
func (c *Cache) Bump(ctx context.Context, businessID uint) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey(businessID)).Err(); err != nil {
		log.Warn().Err(err).Uint("business_id", businessID).Msg("cache version bump failed")
	}
}
