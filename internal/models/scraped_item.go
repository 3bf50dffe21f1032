package models

import "time"

// ScrapedItem is the normalized output of a source adapter. It only lives for
// the duration of one ingestion run.
type ScrapedItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}
