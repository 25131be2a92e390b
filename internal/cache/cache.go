package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contactkeeper/backend/internal/logger"
	"github.com/contactkeeper/backend/internal/metrics"
)

// Cache is a JSON-value cache on Redis. Lookups that fail for any reason are
// reported as misses so callers fall back to the source of truth.
type Cache struct {
	client  *redis.Client
	prefix  string
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "contactkeeper:",
		log:    logger.Default().WithComponent("cache"),
	}
}

// WithMetrics counts hits and misses on m.
func (c *Cache) WithMetrics(m *metrics.Metrics) *Cache {
	c.metrics = m
	return c
}

// Client exposes the Redis client for health checks.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Get loads key into dest. It reports whether the value was found and decoded.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug(ctx, "cache miss", "key", key)
		c.metrics.IncCounter(metrics.CacheMisses)
		return false
	}
	if err != nil {
		c.log.Warn(ctx, "cache get failed", "key", key, "error", err.Error())
		c.metrics.IncCounter(metrics.CacheMisses)
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.log.Warn(ctx, "cache value undecodable", "key", key, "error", err.Error())
		return false
	}
	c.log.Debug(ctx, "cache hit", "key", key)
	c.metrics.IncCounter(metrics.CacheHits)
	return true
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		c.log.Warn(ctx, "cache set failed", "key", key, "error", err.Error())
		return err
	}
	return nil
}
