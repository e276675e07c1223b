package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ContextSessionID = "session_id"

// SessionID разбирает :id из пути и кладет uuid сессии в контекст
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
			return
		}

		c.Set(ContextSessionID, id)
		c.Next()
	}
}
