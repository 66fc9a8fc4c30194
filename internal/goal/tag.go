package goal

import (
	"regexp"
	"strings"
)

const tagPrefix = "#"

var patternRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Tag returns the literal text searched for in transaction fields, e.g. "#car".
func Tag(pattern string) string {
	return tagPrefix + pattern
}

// ValidatePattern checks that pattern is a non-empty run of letters, digits and underscores.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return &ValidationError{Field: "tag_pattern", Reason: "is required"}
	}

	if !patternRe.MatchString(pattern) {
		return &ValidationError{Field: "tag_pattern", Reason: "may only contain letters, numbers and underscores"}
	}

	return nil
}

// Matches reports whether notes or importedDescription contains "#"+pattern.
// This is a case-sensitive substring test with no token boundary, so "car"
// also matches "#carpool".
func Matches(pattern, notes, importedDescription string) bool {
	if pattern == "" {
		return false
	}

	tag := Tag(pattern)

	return strings.Contains(notes, tag) || strings.Contains(importedDescription, tag)
}

// StripTag removes the first occurrence of the pattern's tag from text and
// collapses whitespace. It returns text unchanged when nothing would be left.
func StripTag(text, pattern string) string {
	stripped := strings.Join(strings.Fields(strings.Replace(text, Tag(pattern), "", 1)), " ")
	if stripped == "" {
		return text
	}

	return stripped
}
