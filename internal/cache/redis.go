package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a JSON value cache over redis. A nil *Cache is valid and behaves
// as an always-empty cache, so callers never need to branch on whether
// redis is configured.
type Cache struct {
	client *redis.Client
	prefix string
}

func NewCache(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

// Key hashes an arbitrary string (usually a URL) into a bounded redis key.
func (c *Cache) Key(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	if c == nil {
		return hex.EncodeToString(sum[:16])
	}
	return c.prefix + hex.EncodeToString(sum[:16])
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrMiss
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	return json.Unmarshal(val, dest)
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping reports redis reachability for diagnostics.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache not configured")
	}
	return c.client.Ping(ctx).Err()
}
