package ai

import "regexp"

// Best-effort PII scrubbing for free-text chat input. A heuristic, not a
// security boundary: consecutive capitalized words are treated as a
// probable name, and email addresses are matched structurally.
var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	nameRe  = regexp.MustCompile(`\b(?:[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)\b`)
)

const (
	emailPlaceholder = "[email]"
	namePlaceholder  = "[name]"
)

// RedactPII replaces email addresses and runs of two or more consecutive
// capitalized words with fixed placeholder tokens.
func RedactPII(s string) string {
	s = emailRe.ReplaceAllString(s, emailPlaceholder)
	s = nameRe.ReplaceAllString(s, namePlaceholder)
	return s
}
