package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SettledResponseCache implements ports.SettledResponseCache using Redis.
// It is a best-effort fast path; the journal remains the authoritative
// idempotency record.
type SettledResponseCache struct {
	client *goredis.Client
	prefix string
}

// NewSettledResponseCache creates a new Redis-backed settled-response cache.
func NewSettledResponseCache(client *goredis.Client) *SettledResponseCache {
	return &SettledResponseCache{
		client: client,
		prefix: "settled:",
	}
}

// Get retrieves a cached settlement response by key.
// Returns nil, nil if the key does not exist.
func (c *SettledResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settled get: %w", err)
	}
	return val, nil
}

// Set stores a settlement response under key with the given TTL.
func (c *SettledResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis settled set: %w", err)
	}
	return nil
}
