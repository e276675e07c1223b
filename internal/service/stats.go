package service

import (
	"context"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	"realty_chat/pkg/logger"
)

type StatsService interface {
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
	log       logger.Logger
}

func NewStatsService(statsRepo repository.StatsRepository, log logger.Logger) StatsService {
	return &statsService{
		statsRepo: statsRepo,
		log:       log,
	}
}

func (s *statsService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	return s.statsRepo.GetDashboardStats(ctx)
}
