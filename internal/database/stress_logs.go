package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// StressLogRepository handles daily stress-log entries
type StressLogRepository struct {
	db *DB
}

// NewStressLogRepository creates a new stress log repository
func NewStressLogRepository(db *DB) *StressLogRepository {
	return &StressLogRepository{db: db}
}

// Append inserts a stress-log entry
func (r *StressLogRepository) Append(ctx context.Context, log *models.StressLog) error {
	query := `
		INSERT INTO stress_logs (id, user_id, level, logged_at)
		VALUES ($1, $2, $3, $4)
		RETURNING logged_at
	`

	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query, log.ID, log.UserID, log.Level, log.LoggedAt).Scan(&log.LoggedAt)
	if err != nil {
		return fmt.Errorf("failed to append stress log: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's stress logs, newest first
func (r *StressLogRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.StressLog, error) {
	query := `
		SELECT id, user_id, level, logged_at
		FROM stress_logs
		WHERE user_id = $1
		ORDER BY logged_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stress logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var logs []*models.StressLog
	for rows.Next() {
		log := &models.StressLog{}
		if err := rows.Scan(&log.ID, &log.UserID, &log.Level, &log.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stress log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stress logs: %w", err)
	}

	return logs, nil
}
