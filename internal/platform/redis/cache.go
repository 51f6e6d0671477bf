// Package redis provides a Redis-backed answer cache. The cache is
// best-effort: the service treats lookup failures as misses, so a Redis
// outage degrades latency, not availability.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loomkit/loom-api/internal/config"
	"github.com/loomkit/loom-api/internal/rag"
)

// AnswerCache implements rag.Cache on top of Redis with a fixed TTL.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ rag.Cache = (*AnswerCache)(nil)

// NewAnswerCache creates a Redis-backed cache from the given configuration
// and verifies connectivity with a ping.
func NewAnswerCache(ctx context.Context, logger *slog.Logger, cfg config.CacheConfig) (*AnswerCache, error) {
	if cfg.RedisURL == "" {
		return nil, errors.New("redis URL cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "answer_cache")),
	}, nil
}

// Get implements rag.Cache.Get. A missing key is a miss, not an error.
func (c *AnswerCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

// Set implements rag.Cache.Set.
func (c *AnswerCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *AnswerCache) Close() error {
	return c.client.Close()
}
