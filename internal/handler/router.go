package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"realty_chat/internal/config"
	"realty_chat/internal/domain"
	"realty_chat/internal/metrics"
	"realty_chat/internal/middleware"
	"realty_chat/pkg/logger"
)

func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Лимит на запись для публичных endpoints, по IP клиента
	visitorLimit := rateLimitMiddleware.Limit(domain.RateLimitRule{
		Scope:  domain.RateLimitScopeIP,
		Limit:  cfg.RateLimit.PerMinute,
		Window: time.Minute,
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", visitorLimit, handlers.Auth.Login)
			auth.POST("/refresh", handlers.Auth.RefreshToken)
			auth.POST("/logout", handlers.Auth.Logout)
		}

		// Виджет посетителя
		chat := v1.Group("/chat/sessions")
		{
			chat.POST("", visitorLimit, handlers.Chat.StartSession)

			session := chat.Group("/:id", middleware.SessionID())
			session.GET("", handlers.Chat.GetSnapshot)
			session.POST("/messages", visitorLimit, handlers.Chat.SendMessage)
			session.POST("/end", visitorLimit, handlers.Chat.EndChat)
		}

		v1.GET("/ws/chat/:id", middleware.SessionID(), handlers.Stream.HandleSession)

		// Консоль оператора
		admin := v1.Group("/admin")
		admin.Use(authMiddleware.RequireAuth())
		{
			admin.GET("/me", handlers.Auth.Me)
			admin.GET("/stats", handlers.Stats.Dashboard)
			admin.GET("/chat/sessions", handlers.AdminChat.ListSessions)

			session := admin.Group("/chat/sessions/:id", middleware.SessionID())
			session.GET("", handlers.AdminChat.GetSession)
			session.POST("/messages", handlers.AdminChat.Reply)
			session.POST("/typing", handlers.AdminChat.SetTyping)
			session.POST("/read", handlers.AdminChat.MarkRead)

			admin.POST("/operators", authMiddleware.RequireAdmin(), handlers.Auth.CreateOperator)
		}
	}

	return router
}
