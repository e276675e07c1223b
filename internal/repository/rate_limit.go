package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"realty_chat/pkg/logger"
)

const RateLimitKeyPrefix = "rl:"

type RateLimitRepository interface {
	CheckLimit(ctx context.Context, key string, limit int) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	count, err := r.redis.Get(ctx, RateLimitKeyPrefix+key).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		r.log.Error("Failed to check rate limit", "error", err, "key", key)
		return false, fmt.Errorf("check rate limit: %w", err)
	}

	return count < limit, nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := RateLimitKeyPrefix + key

	count, err := r.redis.Incr(ctx, fullKey).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err, "key", key)
		return 0, fmt.Errorf("increment rate limit: %w", err)
	}

	// Окно начинается с первого запроса
	if count == 1 {
		if err := r.redis.Expire(ctx, fullKey, window).Err(); err != nil {
			r.log.Warn("Failed to set rate limit expiry", "error", err, "key", key)
		}
	}

	return count, nil
}
