// Package cache keeps rendered topic exports in Redis so repeated API
// reads skip the database and the renderers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "buzz:export"

// Export formats served from the cache.
const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatReport = "report"
	FormatRSS    = "rss"
)

var formats = []string{FormatJSON, FormatCSV, FormatReport, FormatRSS}

// Store is satisfied by both Cache and Disabled.
//
// Entries are written under the topic generation read before rendering.
// InvalidateTopic bumps the generation, so a render that raced with it
// lands under a key nobody reads again.
type Store interface {
	Generation(ctx context.Context, topic string) (int64, error)
	Get(ctx context.Context, topic string, generation int64, format string) ([]byte, bool, error)
	Set(ctx context.Context, topic string, generation int64, format string, data []byte) error
	InvalidateTopic(ctx context.Context, topic string) error
	Health(ctx context.Context) map[string]any
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return NewCacheWithClient(client, ttl), nil
}

func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func Key(topic string, generation int64, format string) string {
	return fmt.Sprintf("%s:%s:%d:%s", keyPrefix, topic, generation, format)
}

func generationKey(topic string) string {
	return fmt.Sprintf("%s:%s:generation", keyPrefix, topic)
}

// Generation is 0 until the topic is first invalidated.
func (c *Cache) Generation(ctx context.Context, topic string) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(topic)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache generation for %s: %w", topic, err)
	}
	return generation, nil
}

// Get reports a miss as (nil, false, nil).
func (c *Cache) Get(ctx context.Context, topic string, generation int64, format string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, Key(topic, generation, format)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s export for %s: %w", format, topic, err)
	}
	return data, true, nil
}

func (c *Cache) Set(ctx context.Context, topic string, generation int64, format string, data []byte) error {
	if err := c.client.Set(ctx, Key(topic, generation, format), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s export for %s: %w", format, topic, err)
	}
	return nil
}

func (c *Cache) InvalidateTopic(ctx context.Context, topic string) error {
	generation, err := c.client.Incr(ctx, generationKey(topic)).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate exports for %s: %w", topic, err)
	}

	// Entries of older generations are unreachable; drop the latest ones
	// now and leave stragglers to the TTL.
	keys := make([]string, 0, len(formats))
	for _, format := range formats {
		keys = append(keys, Key(topic, generation-1, format))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("Failed to delete stale exports", "topic", topic, "error", err)
	}
	return nil
}

func (c *Cache) Health(ctx context.Context) map[string]any {
	health := map[string]any{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if size, err := c.client.DBSize(ctx).Result(); err == nil {
		health["key_count"] = size
	}

	return health
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Disabled is used when no Redis address is configured. Every read misses.
type Disabled struct{}

func (Disabled) Generation(context.Context, string) (int64, error) { return 0, nil }
func (Disabled) Get(context.Context, string, int64, string) ([]byte, bool, error) {
	return nil, false, nil
}
func (Disabled) Set(context.Context, string, int64, string, []byte) error { return nil }
func (Disabled) InvalidateTopic(context.Context, string) error            { return nil }
func (Disabled) Health(context.Context) map[string]any {
	return map[string]any{"status": "disabled", "type": "none"}
}
