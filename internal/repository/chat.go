package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_chat/internal/domain"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

// SessionUpdate - частичное обновление сессии, nil поля не меняются.
// ExpectStatus превращает обновление в compare-and-set по текущему статусу.
type SessionUpdate struct {
	Status       *string
	IsRead       *bool
	ExpectStatus *string
}

type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error)
	UpdateSession(ctx context.Context, id uuid.UUID, update SessionUpdate) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, status string, limit, offset int) ([]*domain.SessionSummary, error)
	CreateMessage(ctx context.Context, message *domain.ChatMessage) error
	GetMessages(ctx context.Context, sessionID uuid.UUID) ([]*domain.ChatMessage, error)
	GetRecentMessages(ctx context.Context, sessionID uuid.UUID, beforeID int64, limit int) ([]*domain.ChatMessage, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

const sessionColumns = `id, visitor_name, visitor_email, visitor_phone, locale, status, is_read, created_at, updated_at`

func (r *chatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, visitor_name, visitor_email, visitor_phone, locale, status, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		session.ID, session.VisitorName, session.VisitorEmail, session.VisitorPhone,
		session.Locale, session.Status, session.IsRead,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create chat session", "error", err)
		return fmt.Errorf("create chat session: %w", err)
	}

	return nil
}

func (r *chatRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		r.log.Error("Failed to get chat session", "error", err, "session_id", id)
		return nil, fmt.Errorf("get chat session: %w", err)
	}

	return session, nil
}

func (r *chatRepository) UpdateSession(ctx context.Context, id uuid.UUID, update SessionUpdate) (*domain.ChatSession, error) {
	// Одно UPDATE-выражение: статус и флаг меняются атомарно
	query := `
		UPDATE chat_sessions
		SET status = COALESCE($2, status),
		    is_read = COALESCE($3, is_read),
		    updated_at = NOW()
		WHERE id = $1 AND ($4::text IS NULL OR status = $4)
		RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRow(ctx, query, id, update.Status, update.IsRead, update.ExpectStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if update.ExpectStatus == nil {
				return nil, apperrors.ErrSessionNotFound
			}
			if _, getErr := r.GetSession(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.ErrStatusConflict
		}
		r.log.Error("Failed to update chat session", "error", err, "session_id", id)
		return nil, fmt.Errorf("update chat session: %w", err)
	}

	return session, nil
}

func (r *chatRepository) ListSessions(ctx context.Context, status string, limit, offset int) ([]*domain.SessionSummary, error) {
	query := `
		SELECT s.id, s.visitor_name, s.visitor_email, s.visitor_phone, s.locale, s.status, s.is_read,
		       s.created_at, s.updated_at,
		       m.id, m.sender, m.display_name, m.content, m.created_at
		FROM chat_sessions s
		LEFT JOIN LATERAL (
			SELECT id, sender, display_name, content, created_at
			FROM chat_messages
			WHERE session_id = s.id
			ORDER BY id DESC
			LIMIT 1
		) m ON TRUE
		WHERE ($1 = '' OR s.status = $1)
		ORDER BY s.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list chat sessions", "error", err)
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	summaries := []*domain.SessionSummary{}
	for rows.Next() {
		summary := &domain.SessionSummary{}
		s := &summary.ChatSession
		var (
			msgID       *int64
			sender      *string
			displayName *string
			content     *string
			msgCreated  *time.Time
		)
		err := rows.Scan(
			&s.ID, &s.VisitorName, &s.VisitorEmail, &s.VisitorPhone, &s.Locale, &s.Status, &s.IsRead,
			&s.CreatedAt, &s.UpdatedAt,
			&msgID, &sender, &displayName, &content, &msgCreated,
		)
		if err != nil {
			r.log.Error("Failed to scan chat session", "error", err)
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		if msgID != nil {
			text, card := domain.DecodeContent(*content)
			summary.LastMessage = &domain.ChatMessage{
				ID:          *msgID,
				SessionID:   s.ID,
				Sender:      *sender,
				DisplayName: displayName,
				Text:        text,
				Property:    card,
				CreatedAt:   *msgCreated,
			}
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

func (r *chatRepository) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	// created_at назначает база; заодно обновляем updated_at сессии
	query := `
		WITH inserted AS (
			INSERT INTO chat_messages (session_id, sender, display_name, content)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		), touched AS (
			UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1
		)
		SELECT id, created_at FROM inserted
	`

	content := domain.EncodeContent(message.Text, message.Property)
	err := r.db.QueryRow(ctx, query,
		message.SessionID, message.Sender, message.DisplayName, content,
	).Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err, "session_id", message.SessionID)
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *chatRepository) GetMessages(ctx context.Context, sessionID uuid.UUID) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, sender, display_name, content, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetRecentMessages возвращает последние limit сообщений с id < beforeID
// в хронологическом порядке
func (r *chatRepository) GetRecentMessages(ctx context.Context, sessionID uuid.UUID, beforeID int64, limit int) ([]*domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, sender, display_name, content, created_at
		FROM (
			SELECT id, session_id, sender, display_name, content, created_at
			FROM chat_messages
			WHERE session_id = $1 AND id < $2
			ORDER BY id DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID, beforeID, limit)
	if err != nil {
		r.log.Error("Failed to get recent messages", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("get recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanSession(row pgx.Row) (*domain.ChatSession, error) {
	s := &domain.ChatSession{}
	err := row.Scan(
		&s.ID, &s.VisitorName, &s.VisitorEmail, &s.VisitorPhone, &s.Locale, &s.Status, &s.IsRead,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanMessages(rows pgx.Rows) ([]*domain.ChatMessage, error) {
	messages := []*domain.ChatMessage{}
	for rows.Next() {
		m := &domain.ChatMessage{}
		var content string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.DisplayName, &content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Text, m.Property = domain.DecodeContent(content)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
