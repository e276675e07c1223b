package service

import (
	"context"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	"realty_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow проверяет лимит и учитывает запрос
	Allow(ctx context.Context, key string, rule domain.RateLimitRule) (bool, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, rule domain.RateLimitRule) (bool, error) {
	fullKey := rule.Scope + ":" + key

	allowed, err := s.rateLimitRepo.CheckLimit(ctx, fullKey, rule.Limit)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, nil
	}

	count, err := s.rateLimitRepo.Increment(ctx, fullKey, rule.Window)
	if err != nil {
		return false, err
	}

	return count <= int64(rule.Limit), nil
}
