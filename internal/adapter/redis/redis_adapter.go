package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cnb-rates/internal/entity"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const FallbackKey = "cnb:fallback"

// NewClient parses a redis:// URL and checks the connection.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// FallbackCache stores the whole fallback map as one JSON value.
type FallbackCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *logrus.Logger
}

func NewFallbackCache(client goredis.Cmdable, ttl time.Duration, logger *logrus.Logger) *FallbackCache {
	return &FallbackCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *FallbackCache) Load(ctx context.Context) (map[string]entity.FallbackEntry, error) {
	data, err := c.client.Get(ctx, FallbackKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return map[string]entity.FallbackEntry{}, nil
		}
		return nil, fmt.Errorf("failed to get fallback rates from Redis: %w", err)
	}

	var entries map[string]entity.FallbackEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fallback rates: %w", err)
	}
	if entries == nil {
		entries = map[string]entity.FallbackEntry{}
	}

	c.logger.WithFields(logrus.Fields{"key": FallbackKey, "count": len(entries)}).Debug("Loaded fallback rates")
	return entries, nil
}

func (c *FallbackCache) Save(ctx context.Context, entries map[string]entity.FallbackEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal fallback rates: %w", err)
	}

	if err := c.client.Set(ctx, FallbackKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set fallback rates in Redis: %w", err)
	}

	c.logger.WithFields(logrus.Fields{"key": FallbackKey, "count": len(entries)}).Info("Stored fallback rates")
	return nil
}
