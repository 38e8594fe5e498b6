package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
)

// ErrDuplicateUser is returned when a username or email is already taken
var ErrDuplicateUser = fmt.Errorf("username or email already registered")

const uniqueViolationCode = "23505"

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, session_token, balance, stress_level, survey_completed, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var token sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&token,
		&user.Balance,
		&user.StressLevel,
		&user.SurveyCompleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if token.Valid {
		user.SessionToken = &token.String
	}
	return user, nil
}

// Create creates a new user. A duplicate username or email returns
// ErrDuplicateUser.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, balance, stress_level, survey_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Balance,
		user.StressLevel,
		user.SurveyCompleted,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolationCode {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetBySessionToken retrieves a user by its current session token
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE session_token = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

// SetSessionToken stores the session token for a user. A nil token logs the
// user out.
func (r *UserRepository) SetSessionToken(ctx context.Context, id uuid.UUID, token *string) error {
	query := `UPDATE users SET session_token = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set session token: %w", err)
	}
	return requireRowsAffected(result, "user")
}

// SetStressLevel updates the user's current stress level
func (r *UserRepository) SetStressLevel(ctx context.Context, id uuid.UUID, level int) error {
	query := `UPDATE users SET stress_level = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, level, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set stress level: %w", err)
	}
	return requireRowsAffected(result, "user")
}

// GetSurvey retrieves the user's survey profile. Returns nil when the user
// has not completed onboarding.
func (r *UserRepository) GetSurvey(ctx context.Context, id uuid.UUID) (*models.SurveyProfile, error) {
	var raw []byte
	query := `SELECT survey_profile FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	profile := &models.SurveyProfile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey: %w", err)
	}
	return profile, nil
}

// SetSurvey stores the user's survey profile and marks onboarding complete
func (r *UserRepository) SetSurvey(ctx context.Context, id uuid.UUID, profile *models.SurveyProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal survey: %w", err)
	}

	query := `UPDATE users SET survey_profile = $2, survey_completed = TRUE, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, raw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set survey: %w", err)
	}
	return requireRowsAffected(result, "user")
}

// GetBalance retrieves only the user's current balance
func (r *UserRepository) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `SELECT balance FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func requireRowsAffected(result sql.Result, entity string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found", entity)
	}
	return nil
}
