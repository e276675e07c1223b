package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	"realty_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorOperatorID *uuid.UUID, actorRole string, sessionID *uuid.UUID, eventType string, payload map[string]interface{}) error
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorOperatorID *uuid.UUID, actorRole string, sessionID *uuid.UUID, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:       time.Now(),
		ActorOperatorID: actorOperatorID,
		ActorRole:       actorRole,
		SessionID:       sessionID,
		EventType:       eventType,
		Payload:         payload,
	}

	return s.auditRepo.CreateLog(ctx, auditLog)
}
