package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"realty_chat/internal/config"
	"realty_chat/internal/handler"
	"realty_chat/internal/messaging"
	"realty_chat/internal/middleware"
	"realty_chat/internal/migrations"
	"realty_chat/internal/repository"
	"realty_chat/internal/responder"
	"realty_chat/internal/service"
	"realty_chat/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, closeLog := logger.NewWithFile(cfg.Log.Level, cfg.Log.File)
	defer func() { _ = closeLog() }()

	// Миграции до открытия пула
	if err := migrations.Up(cfg.Database.DSN, appLogger); err != nil {
		appLogger.Fatal("Failed to apply migrations", "error", err)
	}

	// Подключение к PostgreSQL
	dbPool, err := repository.NewPool(context.Background(), cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	checks := map[string]handler.HealthCheck{
		"postgres": dbPool.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}

	// NATS необязателен: без него работает только polling
	var (
		publisher  service.EventPublisher
		subscriber handler.SessionSubscriber
	)
	if cfg.NATS.URL != "" {
		natsClient, err := messaging.NewNATSClient(messaging.NATSConfig{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			ReconnectWait: 2 * time.Second,
			MaxReconnects: -1,
		}, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to NATS", "error", err)
		}
		defer natsClient.Close()

		publisher = natsClient
		subscriber = natsClient
		checks["nats"] = func(context.Context) error {
			if !natsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
		appLogger.Info("NATS connection established", "url", cfg.NATS.URL)
	}

	// Ассистент
	model, err := responder.NewModel(cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to init LLM model", "error", err, "provider", cfg.LLM.Provider)
	}
	assistant := responder.New(model, cfg.LLM, cfg.Chat, appLogger)
	appLogger.Info("Responder ready", "provider", cfg.LLM.Provider, "model", assistant.Model())

	repos := repository.NewRepositories(dbPool, rdb, appLogger)
	services := service.NewServices(repos, assistant, publisher, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, subscriber, checks, cfg, appLogger)
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}
