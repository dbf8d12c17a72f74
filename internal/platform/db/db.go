package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Open connects to the shared Postgres content store. Pool limits are
// modest: content reads happen at most once per spawn cycle per source.
func Open(databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return conn, nil
}
