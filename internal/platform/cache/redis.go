// Package cache wraps the optional Redis read-model cache. The service
// degrades to Postgres-only reads when no Redis is configured, so every
// helper here is nil-safe.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper over go-redis used for board snapshots.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis at url (redis:// form) and verifies the
// connection with a ping.
func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection. Safe on nil.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Get returns the cached bytes for key, or (nil, false) on miss, error,
// or nil client. Cache failures are indistinguishable from misses so the
// caller always falls back to the source of truth.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set stores value under key with a TTL. Errors are swallowed: the cache
// is advisory, never the source of truth.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	c.rdb.Set(ctx, key, value, ttl)
}

// Delete invalidates key. Safe on nil.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	c.rdb.Del(ctx, keys...)
}
