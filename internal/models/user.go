package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID              uuid.UUID       `json:"id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"`
	SessionToken    *string         `json:"-"`
	Balance         decimal.Decimal `json:"balance"`
	StressLevel     int             `json:"stress_level"`
	SurveyCompleted bool            `json:"survey_completed"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
