package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

// Cache key prefixes and TTLs.
const (
	statsKeyPrefix = "stats:"

	// DefaultStatsTTL bounds staleness of cached historical summaries.
	DefaultStatsTTL = 60 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// StatsKey builds a deterministic cache key for a stats query. The
// dimension list is sorted so request ordering does not fragment the
// cache.
func StatsKey(siteID string, start, end time.Time, dimensions []string) string {
	dims := make([]string, len(dimensions))
	copy(dims, dimensions)
	sort.Strings(dims)

	raw := fmt.Sprintf("%s|%s|%s|%s",
		siteID,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
		strings.Join(dims, ","),
	)
	sum := sha256.Sum256([]byte(raw))
	return statsKeyPrefix + siteID + ":" + hex.EncodeToString(sum[:16])
}

// GetStats retrieves a cached stats summary.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetStats(ctx context.Context, key string) (*model.StatsSummary, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var summary model.StatsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		// A corrupt entry is treated as a miss so it gets rewritten.
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}
	return &summary, nil
}

// SetStats stores a stats summary with the given TTL. A zero ttl falls
// back to DefaultStatsTTL.
func (c *Cache) SetStats(ctx context.Context, key string, summary *model.StatsSummary, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal stats summary: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
