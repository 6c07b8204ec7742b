package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/config"
	"github.com/Togather-Foundation/nko-directory/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 10 * time.Second

// openRepository connects to PostgreSQL. The returned close func releases the
// pool.
func openRepository(ctx context.Context, cfg config.Config) (*postgres.Repository, *pgxpool.Pool, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return repo, pool, pool.Close, nil
}
