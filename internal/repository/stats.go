package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"realty_chat/internal/domain"
	"realty_chat/pkg/logger"
)

type StatsRepository interface {
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log logger.Logger) StatsRepository {
	return &statsRepository{db: db, log: log}
}

func (r *statsRepository) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{
		SessionsByStatus: map[string]int{
			domain.SessionStatusBot:         0,
			domain.SessionStatusLiveWaiting: 0,
			domain.SessionStatusLiveActive:  0,
		},
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM chat_sessions GROUP BY status`)
	if err != nil {
		r.log.Error("Failed to count sessions by status", "error", err)
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			r.log.Error("Failed to scan session count", "error", err)
			return nil, fmt.Errorf("scan session count: %w", err)
		}
		stats.SessionsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM chat_sessions WHERE NOT is_read),
			(SELECT COUNT(*) FROM chat_sessions WHERE created_at > NOW() - INTERVAL '24 hours'),
			(SELECT COUNT(*) FROM listings WHERE is_active)
	`
	err = r.db.QueryRow(ctx, query).Scan(&stats.UnreadSessions, &stats.StartedLast24h, &stats.ActiveListings)
	if err != nil {
		r.log.Error("Failed to get dashboard stats", "error", err)
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return stats, nil
}
