package feed

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/mmcdole/gofeed"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8"

// FeedSource reads an RSS 2.0 or Atom feed.
type FeedSource struct {
	cfg     SourceConfig
	fetcher *Fetcher
}

func NewFeedSource(cfg SourceConfig, fetcher *Fetcher) *FeedSource {
	return &FeedSource{cfg: cfg, fetcher: fetcher}
}

func (s *FeedSource) Name() string { return s.cfg.Name }

func (s *FeedSource) FetchItems(ctx context.Context) []models.ScrapedItem {
	log := logger.Component("source").With().Str("source", s.cfg.Name).Logger()

	body, err := s.fetcher.Fetch(ctx, s.cfg.URL, feedAccept)
	if err != nil {
		log.Warn().Err(err).Msg("Feed fetch failed")
		return nil
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("Feed parse failed")
		return nil
	}

	now := nowFunc()
	items := make([]models.ScrapedItem, 0, len(parsed.Items))
	filtered := 0
	for _, it := range parsed.Items {
		if len(items) >= s.cfg.MaxItems {
			break
		}
		if it == nil {
			continue
		}
		if !MatchesKeywords(CleanHTML(it.Title), s.cfg.Keywords) {
			filtered++
			continue
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}
		item, ok := normalize(models.ScrapedItem{
			Title:       it.Title,
			URL:         itemLink(it),
			Source:      s.cfg.Name,
			PublishedAt: itemDate(it, now),
			Content:     content,
		}, now)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	log.Debug().
		Int("items", len(items)).
		Int("filtered", filtered).
		Msg("Feed fetched")
	return items
}

// itemLink prefers the <link> text, then any link href, then a URL-shaped guid.
func itemLink(it *gofeed.Item) string {
	if link := strings.TrimSpace(it.Link); link != "" {
		return link
	}
	for _, l := range it.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if strings.HasPrefix(it.GUID, "http://") || strings.HasPrefix(it.GUID, "https://") {
		return it.GUID
	}
	return ""
}

func itemDate(it *gofeed.Item, now time.Time) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return *it.PublishedParsed
	case it.UpdatedParsed != nil:
		return *it.UpdatedParsed
	default:
		return now
	}
}
