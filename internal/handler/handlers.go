package handler

import (
	"realty_chat/internal/config"
	"realty_chat/internal/service"
	"realty_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	Chat      *ChatHandler
	AdminChat *AdminChatHandler
	Stats     *StatsHandler
	Stream    *StreamHandler
}

// NewHandlers собирает обработчики. subscriber == nil отключает websocket-поток.
func NewHandlers(services *service.Services, subscriber SessionSubscriber, checks map[string]HealthCheck, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg, checks),
		Auth:      NewAuthHandler(services.Auth, log),
		Chat:      NewChatHandler(services.Chat, log),
		AdminChat: NewAdminChatHandler(services.Chat, log),
		Stats:     NewStatsHandler(services.Stats, log),
		Stream:    NewStreamHandler(services.Chat, subscriber, log),
	}
}
