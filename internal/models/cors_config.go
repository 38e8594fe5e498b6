package models

import (
	"strings"
	"time"
)

// CorsConfig is the database-backed CORS policy. Operators manage it with
// the configure CLI; the server hot-reloads it without a restart.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // Comma-separated
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Origins splits the stored comma-separated origin list, dropping blanks
// and duplicates.
func (c *CorsConfig) Origins() []string {
	return SplitOrigins(c.AllowedOrigins)
}

// SplitOrigins splits a comma-separated origin list, dropping blanks and
// duplicates.
func SplitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		origin := strings.TrimSpace(part)
		if origin != "" && !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	return out
}
