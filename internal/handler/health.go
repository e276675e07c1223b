package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realty_chat/internal/config"
)

// HealthCheck проверяет одну зависимость (Postgres, Redis, NATS)
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	environment string
	checks      map[string]HealthCheck
}

func NewHealthHandler(cfg *config.Config, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		environment: cfg.Environment,
		checks:      checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"service":      "realty-chat",
		"environment":  h.environment,
		"dependencies": deps,
	})
}
