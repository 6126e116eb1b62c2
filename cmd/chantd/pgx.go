package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func noticeHandler(conn *pgconn.PgConn, notice *pgconn.Notice) {
	log.Printf("NOTICE: %s", notice.Message)
}

// startPGXPool connects to the relay database.
func startPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to configure connection pool: %w", err)
	}

	// Set the hook for receiving RAISE NOTICE messages.
	poolConfig.ConnConfig.OnNotice = noticeHandler

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to the database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach the database: %w", err)
	}

	return pool, nil
}
