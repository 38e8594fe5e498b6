package models

import (
	"regexp"
	"time"
)

// ratePattern matches the limiter rate syntax: a count, a dash, and a
// period unit (S econd, M inute, H our, D ay).
var ratePattern = regexp.MustCompile(`^[1-9][0-9]*-[SMHD]$`)

// RatelimitConfig is the database-backed rate limit. Rate uses the
// "<count>-<period>" syntax, e.g. "5-S" or "100-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRate reports whether s is a well-formed rate string.
func ValidRate(s string) bool {
	return ratePattern.MatchString(s)
}
