package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinStressLevel is the lowest reportable stress level
	MinStressLevel = 1
	// MaxStressLevel is the highest reportable stress level
	MaxStressLevel = 10
)

// StressLog is a daily stress-level entry
type StressLog struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Level    int       `json:"level"`
	LoggedAt time.Time `json:"logged_at"`
}

// ValidStressLevel reports whether level is within the reportable range
func ValidStressLevel(level int) bool {
	return level >= MinStressLevel && level <= MaxStressLevel
}
