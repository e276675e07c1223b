package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realty_chat/internal/domain"
	"realty_chat/internal/service"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

// Ключи gin-контекста с данными оператора
const (
	ContextOperatorID   = "operator_id"
	ContextOperatorName = "operator_name"
	ContextOperatorRole = "operator_role"
)

type AuthMiddleware struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		operator, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, apperrors.ErrOperatorDisabled) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Operator account is disabled"})
				return
			}
			m.log.Debug("Token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextOperatorID, operator.ID)
		c.Set(ContextOperatorName, operator.DisplayName)
		c.Set(ContextOperatorRole, operator.Role)
		c.Next()
	}
}

// RequireAdmin ставится после RequireAuth
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextOperatorRole) != domain.OperatorRoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}
		c.Next()
	}
}
