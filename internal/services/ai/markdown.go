package ai

import (
	"regexp"
	"strings"
)

// Replies are rendered as plain conversational prose in the app, so
// markdown markup coming back from the model is stripped rather than
// rendered. Numbered lines survive: briefs rely on their numbering.
var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]*`)
	bulletRe  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	italicRe  = regexp.MustCompile(`\*([^*\n]+)\*|_([^_\n]+)_`)
)

// StripMarkdown removes emphasis, heading, and list-item markup, leaving
// the text content. List markers are dropped before emphasis so a leading
// "*" bullet is not mistaken for italics.
func StripMarkdown(s string) string {
	s = headingRe.ReplaceAllString(s, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = boldRe.ReplaceAllString(s, "$1$2")
	s = italicRe.ReplaceAllString(s, "$1$2")
	return strings.TrimSpace(s)
}
