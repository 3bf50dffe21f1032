package feed

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/utils"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// CleanHTML removes HTML tags and normalizes whitespace
func CleanHTML(input string) string {
	cleaned := htmlTagRegex.ReplaceAllString(input, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.TrimSpace(utils.CollapseSpace(cleaned))
}

// MatchesKeywords reports whether title contains any keyword, case-insensitively.
// The title is padded with spaces so keywords like " ai " match at the edges.
func MatchesKeywords(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	padded := " " + strings.ToLower(title) + " "
	for _, k := range keywords {
		if k != "" && strings.Contains(padded, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// normalize cleans an adapter item and reports whether it is usable.
func normalize(item models.ScrapedItem, now time.Time) (models.ScrapedItem, bool) {
	item.Title = CleanHTML(item.Title)
	item.Content = CleanHTML(item.Content)
	item.URL = utils.CanonicalURL(item.URL)
	if item.PublishedAt.IsZero() {
		item.PublishedAt = now
	}
	item.PublishedAt = item.PublishedAt.UTC()
	if item.Title == "" || !strings.HasPrefix(item.URL, "http") {
		return item, false
	}
	return item, true
}
