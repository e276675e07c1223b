package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID              int64                  `json:"id"`
	EventTime       time.Time              `json:"event_time"`
	ActorOperatorID *uuid.UUID             `json:"actor_operator_id,omitempty"`
	ActorRole       string                 `json:"actor_role"`
	SessionID       *uuid.UUID             `json:"session_id,omitempty"`
	EventType       string                 `json:"event_type"`
	Payload         map[string]interface{} `json:"payload"`
}

const (
	ActorRoleVisitor  = "visitor"
	ActorRoleBot      = "bot"
	ActorRoleOperator = "operator"
	ActorRoleSystem   = "system"
)

const (
	EventTypeSessionStarted   = "SESSION_STARTED"
	EventTypeHandoffRequested = "HANDOFF_REQUESTED"
	EventTypeOperatorReplied  = "OPERATOR_REPLIED"
	EventTypeSessionEnded     = "SESSION_ENDED"
	EventTypeSessionRead      = "SESSION_READ"
)
