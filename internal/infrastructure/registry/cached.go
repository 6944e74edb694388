// Package registry decorates an identifier registry with a Redis read-through cache.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"PublishGate/internal/domain"
	"PublishGate/internal/metrics"
	"PublishGate/internal/ports"
)

const (
	keyPrefix  = "publishgate:identifier"
	defaultTTL = 15 * time.Minute
)

// Cached answers Exists from Redis and falls through to the wrapped registry on a miss.
// Redis failures are logged and never fail the lookup.
type Cached struct {
	inner   ports.IdentifierRegistry
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ ports.IdentifierRegistry = (*Cached)(nil)

// NewCached wraps inner. A non-positive ttl uses 15 minutes.
func NewCached(inner ports.IdentifierRegistry, client redis.Cmdable, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Cached {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Exists checks the cache first, then the wrapped registry, caching both answers.
func (c *Cached) Exists(ctx context.Context, kind domain.IdentifierKind, id int64) (bool, error) {
	key := cacheKey(kind, id)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.metrics.RecordRegistryLookup("hit")
		return val == "1", nil
	case errors.Is(err, redis.Nil):
		c.metrics.RecordRegistryLookup("miss")
	default:
		c.metrics.RecordRegistryLookup("cache_error")
		c.logger.Warn("identifier cache read failed", "key", key, "error", err)
	}

	exists, err := c.inner.Exists(ctx, kind, id)
	if err != nil {
		c.metrics.RecordRegistryLookup("error")
		return false, err
	}

	flag := "0"
	if exists {
		flag = "1"
	}
	if err := c.client.Set(ctx, key, flag, c.ttl).Err(); err != nil {
		c.logger.Warn("identifier cache write failed", "key", key, "error", err)
	}

	return exists, nil
}

func cacheKey(kind domain.IdentifierKind, id int64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, kind, id)
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}
