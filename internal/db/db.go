package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dispatch-service/internal/logging"
	"dispatch-service/internal/utils"
)

// DB is the PostgreSQL-backed party directory.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool and waits until the database answers a ping.
func New(ctx context.Context, dsn string, logger *logging.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	err = utils.Retry(ctx, logger, 5, 2*time.Second, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
