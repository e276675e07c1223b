package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"realty_chat/internal/config"
	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/jwt"
	"realty_chat/pkg/logger"
)

type AuthService interface {
	CreateOperator(ctx context.Context, email, password, displayName, role string) (*domain.Operator, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.Operator, error)
	Logout(ctx context.Context, refreshToken string) error
}

type LoginResponse struct {
	Operator     *domain.Operator `json:"operator"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authService struct {
	operatorRepo repository.OperatorRepository
	jwtCfg       config.JWTConfig
	log          logger.Logger
}

func NewAuthService(operatorRepo repository.OperatorRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		operatorRepo: operatorRepo,
		jwtCfg:       jwtCfg,
		log:          log,
	}
}

func (s *authService) CreateOperator(ctx context.Context, email, password, displayName, role string) (*domain.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || !strings.Contains(email, "@") || len(email) > 255 {
		return nil, fmt.Errorf("%w: invalid email format", apperrors.ErrBadRequest)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperrors.ErrBadRequest)
	}
	if displayName == "" || len(displayName) > 100 {
		return nil, fmt.Errorf("%w: display name is required (max 100 characters)", apperrors.ErrBadRequest)
	}
	if role == "" {
		role = domain.OperatorRoleOperator
	}
	if role != domain.OperatorRoleOperator && role != domain.OperatorRoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrBadRequest, role)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	operator := &domain.Operator{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		DisplayName:  displayName,
		Role:         role,
		IsActive:     true,
	}

	if err := s.operatorRepo.Create(ctx, operator); err != nil {
		return nil, err
	}

	operator.PasswordHash = ""
	return operator, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrBadRequest)
	}

	operator, err := s.operatorRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperatorNotFound) {
			// Не раскрываем, существует ли оператор
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !operator.IsActive {
		return nil, apperrors.ErrOperatorDisabled
	}

	tokens, err := s.issueTokens(ctx, operator)
	if err != nil {
		return nil, err
	}

	if err := s.operatorRepo.UpdateLastLogin(ctx, operator.ID); err != nil {
		s.log.Warn("Failed to update last login", "error", err)
	}

	s.log.Info("Operator logged in", "operator_id", operator.ID)

	operator.PasswordHash = ""
	return &LoginResponse{
		Operator:     operator,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtCfg.RefreshSecret)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	operatorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	session, err := s.operatorRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}

	operator, err := s.operatorRepo.GetByID(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if !operator.IsActive {
		return nil, apperrors.ErrOperatorDisabled
	}

	// Новая пара выдается только после отзыва старой сессии
	if err := s.operatorRepo.RevokeSession(ctx, session.ID, "refreshed"); err != nil {
		s.log.Warn("Failed to revoke old session", "error", err, "operator_id", operatorID)
		return nil, err
	}

	return s.issueTokens(ctx, operator)
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.Operator, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	operator, err := s.operatorRepo.GetByID(ctx, claims.OperatorID)
	if err != nil {
		if errors.Is(err, apperrors.ErrOperatorNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	if !operator.IsActive {
		return nil, apperrors.ErrOperatorDisabled
	}

	return operator, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.operatorRepo.GetSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return err
	}

	return s.operatorRepo.RevokeSession(ctx, session.ID, "logout")
}

func (s *authService) issueTokens(ctx context.Context, operator *domain.Operator) (*TokenResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(operator.ID, operator.Email, operator.DisplayName, operator.Role,
		s.jwtCfg.AccessSecret, s.jwtCfg.Issuer, s.jwtCfg.AccessTTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(operator.ID, s.jwtCfg.RefreshSecret, s.jwtCfg.Issuer, s.jwtCfg.RefreshTTL)
	if err != nil {
		s.log.Error("Failed to generate refresh token", "error", err)
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.OperatorSession{
		ID:               uuid.New(),
		OperatorID:       operator.ID,
		RefreshTokenHash: hashToken(refreshToken),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.jwtCfg.RefreshTTL),
	}
	if err := s.operatorRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
