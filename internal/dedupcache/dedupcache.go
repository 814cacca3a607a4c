// Package dedupcache fronts the offer store with a Redis membership check so
// reconciliation skips a database round-trip for keys it has already saved.
package dedupcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps dedup keys alive long enough to cover reposting cycles.
const DefaultTTL = 30 * 24 * time.Hour

// Cache implements admission.KeyCache over Redis. A miss is never
// authoritative; the caller falls back to the store.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New builds a Cache. Empty prefix and zero ttl get usable defaults.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "offers"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Contains reports whether the natural key was marked before.
func (c *Cache) Contains(ctx context.Context, key string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return exists > 0, nil
}

// Add marks the natural key as stored, refreshing its TTL.
func (c *Cache) Add(ctx context.Context, key string) error {
	if err := c.client.Set(ctx, c.redisKey(key), time.Now().Unix(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// redisKey hashes the natural key so detail URLs of any length map to a
// fixed-size key.
func (c *Cache) redisKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return c.prefix + ":" + hex.EncodeToString(h[:16])
}
