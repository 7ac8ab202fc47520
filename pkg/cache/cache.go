// Package cache provides a Redis-backed cache for derived graph views.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Cache wraps a Redis client with JSON marshaling and per-tenant invalidation
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger ectologger.Logger
}

// New creates a new cache client and verifies connectivity
func New(cfg Config, logger ectologger.Logger) (*Cache, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func key(tenantID, view string) string {
	return fmt.Sprintf("fern:views:%s:%s", tenantID, view)
}

// Get loads a cached view into dest. Returns false on a miss.
func (c *Cache) Get(ctx context.Context, tenantID, view string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key(tenantID, view)).Bytes()
	if err == redis.Nil {
		metrics.GraphCacheHits.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached view %s: %w", view, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// A stale or corrupt entry is treated as a miss
		c.logger.Warnf("Dropping unreadable cache entry for view %s: %v", view, err)
		_ = c.rdb.Del(ctx, key(tenantID, view)).Err()
		metrics.GraphCacheHits.WithLabelValues("miss").Inc()
		return false, nil
	}

	metrics.GraphCacheHits.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores a view with the configured TTL
func (c *Cache) Set(ctx context.Context, tenantID, view string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal view %s: %w", view, err)
	}

	if err := c.rdb.Set(ctx, key(tenantID, view), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache view %s: %w", view, err)
	}

	return nil
}

// Invalidate removes all cached views for a tenant. Called after any
// mutation that changes roles, relationships, or tags.
func (c *Cache) Invalidate(ctx context.Context, tenantID string) error {
	pattern := fmt.Sprintf("fern:views:%s:*", tenantID)

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys for tenant %s: %w", tenantID, err)
		}

		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys for tenant %s: %w", tenantID, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
