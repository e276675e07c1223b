package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	ID           uuid.UUID `json:"id"`
	VisitorName  string    `json:"visitor_name"`
	VisitorEmail string    `json:"visitor_email"`
	VisitorPhone string    `json:"visitor_phone"`
	Locale       string    `json:"locale"`
	Status       string    `json:"status"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsLive - сессию обслуживает оператор, ассистент отключен
func (s *ChatSession) IsLive() bool {
	return IsLiveStatus(s.Status)
}

// ChatMessage хранит тело как вариант: просто текст или текст с карточкой объекта.
// Разделители [PROPERTY_DATA] существуют только в базе (см. EncodeContent).
type ChatMessage struct {
	ID          int64         `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	Sender      string        `json:"sender"`
	DisplayName *string       `json:"display_name,omitempty"`
	Text        string        `json:"content"`
	Property    *PropertyCard `json:"property,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SessionSummary - строка списка сессий в консоли оператора
type SessionSummary struct {
	ChatSession
	LastMessage *ChatMessage `json:"last_message,omitempty"`
}

// Snapshot - read model для polling виджета и консоли
type Snapshot struct {
	SessionID   uuid.UUID      `json:"session_id"`
	Status      string         `json:"status"`
	IsRead      bool           `json:"is_read"`
	AdminTyping bool           `json:"admin_typing"`
	Messages    []*ChatMessage `json:"messages"`
}

// ConversationTurn - элемент контекста для ассистента
type ConversationTurn struct {
	Role string
	Text string
}

const (
	SessionStatusBot         = "bot"
	SessionStatusLiveWaiting = "live_waiting"
	SessionStatusLiveActive  = "live_active"
)

const (
	SenderUser     = "user"
	SenderBot      = "bot"
	SenderOperator = "operator"
)

const (
	TurnRoleVisitor   = "visitor"
	TurnRoleAssistant = "assistant"
)

const (
	LocaleTR = "tr"
	LocaleEN = "en"
)

func IsLiveStatus(status string) bool {
	return status == SessionStatusLiveWaiting || status == SessionStatusLiveActive
}

func IsValidStatus(status string) bool {
	switch status {
	case SessionStatusBot, SessionStatusLiveWaiting, SessionStatusLiveActive:
		return true
	}
	return false
}

// TurnRole: всё, что написал не посетитель, для модели - реплики ассистента
func TurnRole(sender string) string {
	if sender == SenderUser {
		return TurnRoleVisitor
	}
	return TurnRoleAssistant
}
