package utils

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// CleanText trims and sanitizes free text coming from a form
func CleanText(s string) string {
	return strings.TrimSpace(SanitizeString(s))
}
