package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"realty_chat/pkg/logger"
)

// TypingKeyPrefix - ключ живет TTL, так что закрытая вкладка оператора
// не оставит индикатор включенным навсегда
const TypingKeyPrefix = "chat:typing:"

type TypingRepository interface {
	SetTyping(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error
	ClearTyping(ctx context.Context, sessionID uuid.UUID) error
	IsTyping(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type typingRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewTypingRepository(redis *redis.Client, log logger.Logger) TypingRepository {
	return &typingRepository{redis: redis, log: log}
}

func typingKey(sessionID uuid.UUID) string {
	return TypingKeyPrefix + sessionID.String()
}

func (r *typingRepository) SetTyping(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error {
	if err := r.redis.Set(ctx, typingKey(sessionID), "1", ttl).Err(); err != nil {
		r.log.Error("Failed to set typing indicator", "error", err, "session_id", sessionID)
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

func (r *typingRepository) ClearTyping(ctx context.Context, sessionID uuid.UUID) error {
	if err := r.redis.Del(ctx, typingKey(sessionID)).Err(); err != nil {
		r.log.Error("Failed to clear typing indicator", "error", err, "session_id", sessionID)
		return fmt.Errorf("clear typing: %w", err)
	}
	return nil
}

func (r *typingRepository) IsTyping(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := r.redis.Exists(ctx, typingKey(sessionID)).Result()
	if err != nil {
		r.log.Error("Failed to read typing indicator", "error", err, "session_id", sessionID)
		return false, fmt.Errorf("read typing: %w", err)
	}
	return n > 0, nil
}
