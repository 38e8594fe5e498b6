package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Postgres driver
	_ "github.com/lib/pq"
)

const (
	// DefaultMaxOpenConns caps the connection pool size
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns caps idle pooled connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime recycles connections periodically
	DefaultConnMaxLifetime = 30 * time.Minute
)

// DB wraps the sql database handle
type DB struct {
	*sql.DB
}

// New opens a Postgres connection pool and verifies connectivity
func New(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}
