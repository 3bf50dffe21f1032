package utils

import (
	"strings"

	"github.com/google/uuid"
)

const slugLength = 10

// NewSlug returns a short URL-safe identifier.
func NewSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:slugLength]
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Prefix is a log-friendly head of s.
func Prefix(s string) string {
	return Truncate(s, 40)
}

// CollapseSpace squeezes every whitespace run into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
