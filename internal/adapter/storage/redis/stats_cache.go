package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"consenthub/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// StatsCache implements ports.StatsCache using Redis. Audit statistics are
// expensive aggregation queries; dashboards poll them frequently, so results
// are cached for a short TTL.
type StatsCache struct {
	client *goredis.Client
	prefix string
}

// NewStatsCache creates a new Redis-backed statistics cache.
func NewStatsCache(client *goredis.Client) *StatsCache {
	return &StatsCache{
		client: client,
		prefix: "auditstats:",
	}
}

// Get retrieves cached statistics. Returns nil, nil on a cache miss.
func (c *StatsCache) Get(ctx context.Context, key string) (*ports.AuditStatistics, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis stats get: %w", err)
	}

	var stats ports.AuditStatistics
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, fmt.Errorf("unmarshal cached stats: %w", err)
	}
	return &stats, nil
}

// Set stores statistics with TTL.
func (c *StatsCache) Set(ctx context.Context, key string, stats *ports.AuditStatistics, ttl time.Duration) error {
	val, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis stats set: %w", err)
	}
	return nil
}
