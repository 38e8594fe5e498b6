package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zenithlabs/zenith-api/internal/models"
)

const defaultCorsConfigKey = "default"

// CorsConfigRepository handles CORS configuration in the database
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get retrieves the default CORS config. Returns nil when none is stored.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	cfg := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1
	`, defaultCorsConfigKey).Scan(
		&cfg.ConfigKey,
		&cfg.AllowedOrigins,
		&cfg.AllowCredentials,
		&cfg.MaxAge,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cors config: %w", err)
	}
	return cfg, nil
}

// Set upserts the default CORS config. AllowedOrigins is comma-separated.
func (r *CorsConfigRepository) Set(ctx context.Context, cfg *models.CorsConfig) error {
	origins := strings.TrimSpace(cfg.AllowedOrigins)
	if origins == "" {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at
	`, defaultCorsConfigKey, origins, cfg.AllowCredentials, cfg.MaxAge, now, now)
	if err != nil {
		return fmt.Errorf("failed to set cors config: %w", err)
	}
	return nil
}
