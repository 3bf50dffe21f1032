// Package trends produces the bilingual weekly digest from the week's
// summarized records.
package trends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/newsbridge/internal/ai"
	"github.com/bilgisen/newsbridge/internal/archive"
	"github.com/bilgisen/newsbridge/internal/cache"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/storage"
)

const (
	minArticles = 3
	maxArticles = 60
	lookback    = 7 * 24 * time.Hour
	guardTTL    = 8 * 24 * time.Hour
)

// ErrSkipped reports a run that intentionally did nothing.
var ErrSkipped = errors.New("weekly trends skipped")

// Generator is the language-model step of the synthesis.
type Generator interface {
	SynthesizeTrends(ctx context.Context, items []ai.TrendInput) (*models.WeeklyTrends, error)
}

type Synthesizer struct {
	store   storage.Store
	gen     Generator
	guard   cache.Cache
	archive archive.Archiver
	loc     *time.Location
	weekday time.Weekday
}

func NewSynthesizer(store storage.Store, gen Generator, guard cache.Cache, arch archive.Archiver, loc *time.Location, weekday time.Weekday) *Synthesizer {
	if loc == nil {
		loc = time.UTC
	}
	if arch == nil {
		arch = archive.Nop{}
	}
	return &Synthesizer{store: store, gen: gen, guard: guard, archive: arch, loc: loc, weekday: weekday}
}

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}

// Due reports whether now falls on the configured weekday in the
// configured timezone.
func (s *Synthesizer) Due(now time.Time) bool {
	return now.In(s.loc).Weekday() == s.weekday
}

// Run synthesizes the current week once. A second run for the same week
// returns ErrSkipped until the guard expires. A failed run releases the
// guard so the next trigger can retry.
func (s *Synthesizer) Run(ctx context.Context, now time.Time) (*models.WeeklyTrends, error) {
	week := WeekStart(now, s.loc)
	key := "trends:" + week.Format("2006-01-02")

	if s.guard != nil {
		ok, err := s.guard.AcquireOnce(ctx, key, guardTTL)
		if err != nil {
			logger.Component("trends").Warn().Err(err).Msg("Weekly guard unavailable, continuing without it")
		} else if !ok {
			return nil, fmt.Errorf("%w: week %s already synthesized", ErrSkipped, week.Format("2006-01-02"))
		}
	}

	w, err := s.Generate(ctx, now)
	if err != nil && s.guard != nil {
		if rerr := s.guard.Release(ctx, key); rerr != nil {
			logger.Component("trends").Warn().Err(rerr).Str("key", key).Msg("Failed to release weekly guard")
		}
	}
	return w, err
}

// Generate builds, stores and archives the digest for the week of now,
// replacing any existing one.
func (s *Synthesizer) Generate(ctx context.Context, now time.Time) (*models.WeeklyTrends, error) {
	log := logger.Component("trends")
	week := WeekStart(now, s.loc)

	recs, err := s.store.List(ctx, storage.Query{
		PublishedSince: now.Add(-lookback),
		HasSummary:     true,
		Limit:          maxArticles,
	})
	if err != nil {
		return nil, fmt.Errorf("list week articles: %w", err)
	}
	if len(recs) < minArticles {
		log.Info().Int("articles", len(recs)).Msg("Not enough articles for weekly trends")
		return nil, fmt.Errorf("%w: only %d articles", ErrSkipped, len(recs))
	}

	items := make([]ai.TrendInput, 0, len(recs))
	for _, r := range recs {
		items = append(items, ai.TrendInput{Title: r.Title, Summary: models.Deref(r.SummaryPrimary), Tags: r.Tags})
	}

	w, err := s.gen.SynthesizeTrends(ctx, items)
	if err != nil {
		return nil, err
	}
	w.WeekStart = week
	w.ArticleCount = len(recs)
	w.CreatedAt = now.UTC()
	w.UpdatedAt = now.UTC()

	if err := s.store.UpsertWeeklyTrends(ctx, w); err != nil {
		return nil, fmt.Errorf("store weekly trends: %w", err)
	}

	if err := s.archive.PutJSON(ctx, "trends/"+w.WeekKey()+".json", w); err != nil {
		log.Error().Err(err).Str("week", w.WeekKey()).Msg("Failed to archive weekly trends")
	}

	log.Info().Str("week", w.WeekKey()).Int("articles", len(recs)).Msg("Weekly trends synthesized")
	return w, nil
}
