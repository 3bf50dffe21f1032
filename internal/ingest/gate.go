// Package ingest writes scraped items into storage exactly once per
// canonical URL and guards the manual trigger against rapid re-runs.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/newsbridge/internal/cache"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/utils"
	"github.com/google/uuid"
)

// DefaultCooldown is the minimum gap between manual runs.
const DefaultCooldown = 5 * time.Minute

// ErrRateLimited rejects a manual run that follows the last insert too closely.
var ErrRateLimited = errors.New("rate limited: try again later")

// Gate is the dedup and ingest gate.
type Gate struct {
	store    storage.Store
	cache    cache.Cache
	cacheTTL time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithCache puts a seen-URL memo in front of the storage existence check.
// It is ignored for the in-memory store: that store starts empty on every
// restart while a shared cache does not, so cached URLs would never be
// inserted again.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Gate) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) { g.cooldown = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func NewGate(store storage.Store, opts ...Option) *Gate {
	g := &Gate{
		store:    store,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if _, volatile := store.(*storage.MemoryStore); volatile && g.cache != nil {
		logger.Component("ingest").Warn().Msg("Seen-URL cache disabled for in-memory storage")
		g.cache = nil
	}
	return g
}

// Ingest inserts every item whose URL is not stored yet and returns how many
// were inserted. Items are checked and inserted one at a time, so a repeated
// URL later in the same batch is caught by the earlier insert. Per-item
// failures are logged and skipped.
func (g *Gate) Ingest(ctx context.Context, items []models.ScrapedItem) int {
	log := logger.Component("ingest")
	start := g.now()
	inserted, duplicates, failed := 0, 0, 0

	for _, item := range items {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Int("inserted", inserted).Msg("Ingest interrupted")
			break
		}

		url := utils.CanonicalURL(item.URL)
		if url == "" || item.Title == "" {
			continue
		}
		key := utils.URLKey(url)

		if g.seen(ctx, key) {
			duplicates++
			continue
		}

		exists, err := g.store.ExistsByURL(ctx, url)
		if err != nil {
			failed++
			log.Error().Err(err).Str("url", url).Str("title", utils.Prefix(item.Title)).Msg("Existence check failed")
			continue
		}
		if exists {
			duplicates++
			g.mark(ctx, key)
			continue
		}

		rec := newRecord(item, url, g.now())
		ok, err := g.store.Insert(ctx, rec)
		if err != nil {
			failed++
			log.Error().Err(err).Str("url", url).Str("title", utils.Prefix(item.Title)).Msg("Insert failed")
			continue
		}
		g.mark(ctx, key)
		if !ok {
			duplicates++
			continue
		}
		inserted++
		log.Debug().Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Msg("Inserted record")
	}

	log.Info().
		Int("received", len(items)).
		Int("inserted", inserted).
		Int("duplicates", duplicates).
		Int("failed", failed).
		Dur("duration", g.now().Sub(start)).
		Msg("Ingest finished")
	return inserted
}

// CheckRateLimit returns ErrRateLimited when the newest record was created
// less than the cooldown ago.
func (g *Gate) CheckRateLimit(ctx context.Context) error {
	latest, err := g.store.LatestCreatedAt(ctx)
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}
	if latest.IsZero() {
		return nil
	}
	if elapsed := g.now().Sub(latest); elapsed < g.cooldown {
		wait := (g.cooldown - elapsed).Round(time.Second)
		return fmt.Errorf("%w (retry in %s)", ErrRateLimited, wait)
	}
	return nil
}

func (g *Gate) seen(ctx context.Context, key string) bool {
	if g.cache == nil {
		return false
	}
	ok, err := g.cache.IsProcessed(ctx, key)
	if err != nil {
		logger.Component("ingest").Warn().Err(err).Msg("Seen-URL cache lookup failed")
		return false
	}
	return ok
}

func (g *Gate) mark(ctx context.Context, key string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.MarkProcessed(ctx, key, g.cacheTTL); err != nil {
		logger.Component("ingest").Warn().Err(err).Msg("Seen-URL cache write failed")
	}
}

func newRecord(item models.ScrapedItem, url string, now time.Time) *models.NewsRecord {
	published := item.PublishedAt
	if published.IsZero() {
		published = now
	}
	return &models.NewsRecord{
		ID:          uuid.NewString(),
		Slug:        utils.NewSlug(),
		OriginalURL: url,
		Source:      item.Source,
		Title:       item.Title,
		Tags:        []string{},
		PublishedAt: published.UTC(),
		CreatedAt:   now.UTC(),
	}
}
