package service

import (
	"realty_chat/internal/config"
	"realty_chat/internal/repository"
	"realty_chat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Chat      ChatService
	Stats     StatsService
	RateLimit RateLimitService
	Audit     AuditService
}

// NewServices собирает сервисы. publisher может быть nil, если NATS не настроен.
func NewServices(repos *repository.Repositories, responder Responder, publisher EventPublisher, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Audit, log)

	services := &Services{
		Auth:      NewAuthService(repos.Operator, cfg.JWT, log),
		Chat:      NewChatService(repos.Chat, repos.Listing, repos.Typing, audit, responder, publisher, cfg, log),
		Stats:     NewStatsService(repos.Stats, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Audit:     audit,
	}

	if publisher == nil {
		log.Info("Session event publishing disabled (NATS not configured)")
	}

	return services
}
