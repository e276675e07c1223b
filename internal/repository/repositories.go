package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"realty_chat/pkg/logger"
)

type Repositories struct {
	Chat      ChatRepository
	Listing   ListingRepository
	Operator  OperatorRepository
	Typing    TypingRepository
	Stats     StatsRepository
	Audit     AuditRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Chat:      NewChatRepository(db, log),
		Listing:   NewListingRepository(db, log),
		Operator:  NewOperatorRepository(db, log),
		Typing:    NewTypingRepository(redis, log),
		Stats:     NewStatsRepository(db, log),
		Audit:     NewAuditRepository(db, log),
		RateLimit: NewRateLimitRepository(redis, log),
	}

	log.Info("Repositories initialized")

	return repos
}
