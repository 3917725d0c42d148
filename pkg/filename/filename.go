// Package filename turns media titles into names safe for a
// Content-Disposition header and a local filesystem.
package filename

import (
	"regexp"
	"strings"
)

var (
	nonWordSpace   = regexp.MustCompile(`[^\w\s]`)
	nonWordDotDash = regexp.MustCompile(`[^\w\s.-]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// SanitizeLight removes every character that is not a word character or whitespace.
func SanitizeLight(title string) string {
	return strings.TrimSpace(nonWordSpace.ReplaceAllString(title, ""))
}

// Sanitize removes characters other than word characters, whitespace, dots
// and dashes, then collapses whitespace runs into a single underscore.
func Sanitize(title string) string {
	s := nonWordDotDash.ReplaceAllString(title, "")
	s = strings.TrimSpace(s)
	return whitespaceRun.ReplaceAllString(s, "_")
}

// OrDefault returns name, or fallback when name is empty.
func OrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
