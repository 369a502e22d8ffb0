package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/cat-backend/internal/config"
	"github.com/stemsi/cat-backend/internal/model"
)

// RedisOrderCache stores delivered question orders as JSON strings in Redis.
type RedisOrderCache struct {
	rdb *redis.Client
}

// NewRedisOrderCache creates a new RedisOrderCache.
func NewRedisOrderCache(rdb *redis.Client) *RedisOrderCache {
	return &RedisOrderCache{rdb: rdb}
}

// Load returns the cached order for sessionID, or nil on a miss.
func (c *RedisOrderCache) Load(ctx context.Context, sessionID uuid.UUID) ([]model.QuestionOrder, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.SessionOrderKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	var order []model.QuestionOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return order, nil
}

// Store caches order for sessionID with the given TTL.
func (c *RedisOrderCache) Store(ctx context.Context, sessionID uuid.UUID, order []model.QuestionOrder, ttl time.Duration) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := c.rdb.Set(ctx, config.CacheKey.SessionOrderKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set order: %w", err)
	}
	return nil
}
