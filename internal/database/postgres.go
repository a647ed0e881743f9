package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ticketnepal/internal/config"
	"ticketnepal/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Connect opens PostgreSQL, retrying while the database comes up, and wraps it in bun.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	for i := 1; i <= connectAttempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL at %s:%s (attempt %d/%d)", cfg.Host, cfg.Port, i, connectAttempts))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = sqldb.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < connectAttempts {
			select {
			case <-ctx.Done():
				sqldb.Close()
				return nil, ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", connectAttempts, err)
	}

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
