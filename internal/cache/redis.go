// Package cache wraps the Redis client used for the event stream and
// the stats summary cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds the shared Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection. The pool leaves
// headroom beyond the defaults because the stream worker parks a
// connection in blocking reads.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	opt.PoolSize = 12
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity for readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the raw client for the stream publisher and worker,
// which speak the streams API directly.
func (c *Cache) Client() *redis.Client {
	return c.client
}
