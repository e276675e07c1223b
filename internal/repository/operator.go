package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_chat/internal/domain"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

type OperatorRepository interface {
	Create(ctx context.Context, operator *domain.Operator) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
	GetByEmail(ctx context.Context, email string) (*domain.Operator, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	CreateSession(ctx context.Context, session *domain.OperatorSession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.OperatorSession, error)
	RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error
}

type operatorRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewOperatorRepository(db *pgxpool.Pool, log logger.Logger) OperatorRepository {
	return &operatorRepository{db: db, log: log}
}

const operatorColumns = `id, email, password_hash, display_name, role, is_active, last_login_at, created_at, updated_at`

func (r *operatorRepository) Create(ctx context.Context, operator *domain.Operator) error {
	query := `
		INSERT INTO operators (id, email, password_hash, display_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		operator.ID, operator.Email, operator.PasswordHash, operator.DisplayName, operator.Role, operator.IsActive,
	).Scan(&operator.CreatedAt, &operator.UpdatedAt)

	if err != nil {
		// Код 23505 = unique_violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("Operator already exists (unique violation)", "email", operator.Email, "constraint", pgErr.ConstraintName)
			return apperrors.ErrOperatorExists
		}
		r.log.Error("Failed to create operator", "error", err, "email", operator.Email)
		return fmt.Errorf("create operator: %w", err)
	}

	return nil
}

func (r *operatorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *operatorRepository) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *operatorRepository) getOne(ctx context.Context, query string, arg any) (*domain.Operator, error) {
	op := &domain.Operator{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&op.ID, &op.Email, &op.PasswordHash, &op.DisplayName, &op.Role, &op.IsActive,
		&op.LastLoginAt, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOperatorNotFound
		}
		r.log.Error("Failed to get operator", "error", err)
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}

func (r *operatorRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE operators SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to update last login", "error", err, "operator_id", id)
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *operatorRepository) CreateSession(ctx context.Context, session *domain.OperatorSession) error {
	query := `
		INSERT INTO operator_sessions (id, operator_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.OperatorID, session.RefreshTokenHash, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		r.log.Error("Failed to create operator session", "error", err)
		return fmt.Errorf("create operator session: %w", err)
	}

	return nil
}

func (r *operatorRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.OperatorSession, error) {
	query := `
		SELECT id, operator_id, refresh_token_hash, created_at, expires_at, revoked_at, revoked_reason
		FROM operator_sessions
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
	`

	session := &domain.OperatorSession{}
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID, &session.OperatorID, &session.RefreshTokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidToken
		}
		r.log.Error("Failed to get operator session", "error", err)
		return nil, fmt.Errorf("get operator session: %w", err)
	}

	return session, nil
}

func (r *operatorRepository) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	// Отзыв срабатывает один раз: из двух параллельных refresh проходит только один
	query := `
		UPDATE operator_sessions
		SET revoked_at = NOW(), revoked_reason = $2
		WHERE id = $1 AND revoked_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, sessionID, reason)
	if err != nil {
		r.log.Error("Failed to revoke operator session", "error", err)
		return fmt.Errorf("revoke operator session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidToken
	}

	return nil
}
