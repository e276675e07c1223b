// Package cli - служебная утилита chatctl: миграции, операторы, объявления.
package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"realty_chat/internal/config"
	"realty_chat/internal/repository"
	"realty_chat/pkg/logger"
)

var (
	verbose bool

	cfg    *config.Config
	log    logger.Logger
	dbPool *pgxpool.Pool
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Maintenance tool for the realty chat service",
	Long: `chatctl manages the realty chat database: schema migrations,
operator accounts and property listings.

Configuration is read from the environment (and .env), the same way
the server reads it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		log = logger.New(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbPool != nil {
			dbPool.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(operatorCmd)
	rootCmd.AddCommand(listingCmd)
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}

// connect открывает пул лениво: миграциям он не нужен
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if dbPool != nil {
		return dbPool, nil
	}
	pool, err := repository.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	dbPool = pool
	return dbPool, nil
}
