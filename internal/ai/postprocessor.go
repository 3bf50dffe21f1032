package ai

import (
	"regexp"
	"strings"

	"github.com/bilgisen/newsbridge/internal/models"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// cleanText removes control characters and normalizes whitespace.
func cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// cleanTags trims, drops empties and removes case-insensitive duplicates.
// Tags are a set, so order carries no meaning.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(cleanText(t), "#")
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// processSummary cleans a decoded summary in place.
func processSummary(s *models.Summary) {
	s.TitlePrimary = cleanText(s.TitlePrimary)
	s.SummaryPrimary = cleanText(s.SummaryPrimary)
	s.SummaryEN = cleanText(s.SummaryEN)
	s.Tags = cleanTags(s.Tags)
}
