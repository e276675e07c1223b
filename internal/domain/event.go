package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionEvent публикуется в шину при каждом изменении сессии
type SessionEvent struct {
	Type      string       `json:"type"`
	SessionID uuid.UUID    `json:"session_id"`
	Status    string       `json:"status,omitempty"`
	Message   *ChatMessage `json:"message,omitempty"`
	IsTyping  *bool        `json:"is_typing,omitempty"`
	Ts        time.Time    `json:"ts"`
}

const (
	SessionEventMessage = "message"
	SessionEventStatus  = "status"
	SessionEventTyping  = "typing"
)
