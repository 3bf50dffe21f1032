package feed

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
)

// SearchSource runs one query per search term against an Algolia-style JSON
// search API and merges the hits, dropping repeated URLs.
type SearchSource struct {
	cfg     SourceConfig
	fetcher *Fetcher
}

type searchResponse struct {
	Hits []searchHit `json:"hits"`
}

type searchHit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	StoryText string `json:"story_text"`
	CreatedAt string `json:"created_at"`
}

func NewSearchSource(cfg SourceConfig, fetcher *Fetcher) *SearchSource {
	return &SearchSource{cfg: cfg, fetcher: fetcher}
}

func (s *SearchSource) Name() string { return s.cfg.Name }

func (s *SearchSource) FetchItems(ctx context.Context) []models.ScrapedItem {
	log := logger.Component("source").With().Str("source", s.cfg.Name).Logger()
	now := nowFunc()

	seen := make(map[string]bool)
	var items []models.ScrapedItem
	for _, q := range s.cfg.Queries {
		hits, err := s.query(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("Search query failed")
			continue
		}
		for _, h := range hits {
			if h.URL == "" {
				continue
			}
			item, ok := normalize(models.ScrapedItem{
				Title:       h.Title,
				URL:         h.URL,
				Source:      s.cfg.Name,
				PublishedAt: parseHitTime(h.CreatedAt),
				Content:     h.StoryText,
			}, now)
			if !ok || seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			items = append(items, item)
		}
	}

	log.Debug().Int("items", len(items)).Int("queries", len(s.cfg.Queries)).Msg("Search fetched")
	return items
}

func (s *SearchSource) query(ctx context.Context, q string) ([]searchHit, error) {
	params := url.Values{}
	params.Set("query", q)
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(s.cfg.MaxItems))

	body, err := s.fetcher.Fetch(ctx, s.cfg.URL+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

func parseHitTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

