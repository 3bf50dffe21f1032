// Package consistency repairs the language-paired slots of recent records:
// primary-language title and summary must read as Chinese, the English
// slots as English. Each sweep is bounded, idempotent and safe to re-run.
package consistency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bilgisen/newsbridge/internal/ai"
	"github.com/bilgisen/newsbridge/internal/lang"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/utils"
)

const DefaultDelay = 500 * time.Millisecond

// Translator is the pair of single-record translations the engine uses.
type Translator interface {
	ToPrimary(ctx context.Context, title, summary string) (*ai.PrimaryText, error)
	ToEnglish(ctx context.Context, title, summary string) (*ai.EnglishText, error)
}

// SweepReport counts the records fixed per language in one combined sweep.
type SweepReport struct {
	Primary   int `json:"primary_fixed"`
	Secondary int `json:"secondary_fixed"`
}

type Engine struct {
	store storage.Store
	tr    Translator
	delay time.Duration
	now   func() time.Time

	mu sync.Mutex
	// tried counts attempts per sweep and record id for records that are
	// still deficient. Records that keep failing sort behind fresh ones.
	tried map[string]map[string]int
}

type Option func(*Engine)

// WithDelay sets the pause between language-model calls.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store storage.Store, tr Translator, opts ...Option) *Engine {
	e := &Engine{store: store, tr: tr, delay: DefaultDelay, now: time.Now, tried: make(map[string]map[string]int)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// slots marks which language-paired fields of a record are deficient.
type slots struct {
	title   bool
	summary bool
}

func (s slots) any() bool { return s.title || s.summary }

func primaryDeficits(r *models.NewsRecord) slots {
	return slots{
		title: lang.IsEnglish(r.Title),
		summary: r.SummaryPrimary == nil ||
			models.RuneLen(r.SummaryPrimary) < lang.MinPrimarySummary ||
			lang.IsEnglish(*r.SummaryPrimary),
	}
}

// secondaryDeficits flags the English slots. A summary slot only counts
// when some summary exists to translate from.
func secondaryDeficits(r *models.NewsRecord) slots {
	hasSource := models.Deref(r.SummaryPrimary) != "" || models.Deref(r.SummaryEN) != ""
	return slots{
		title:   r.TitleEN == nil || !lang.IsEnglishSlot(*r.TitleEN),
		summary: hasSource && (r.SummaryEN == nil || !lang.IsEnglishSlot(*r.SummaryEN)),
	}
}

func auditDeficits(r *models.NewsRecord) slots {
	return slots{title: lang.IsEnglishTitle(r.Title)}
}

type candidate struct {
	rec   *models.NewsRecord
	need  slots
	tries int
}

// queue returns the deficient records of the window, fewest earlier
// attempts first and newest first within the same count.
func (e *Engine) queue(sweep string, recs []models.NewsRecord, deficits func(*models.NewsRecord) slots) []candidate {
	var out []candidate
	for i := range recs {
		if need := deficits(&recs[i]); need.any() {
			out = append(out, candidate{rec: &recs[i], need: need})
		}
	}

	e.mu.Lock()
	prev := e.tried[sweep]
	kept := make(map[string]int, len(out))
	for i := range out {
		out[i].tries = prev[out[i].rec.ID]
		kept[out[i].rec.ID] = out[i].tries
	}
	e.tried[sweep] = kept
	e.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].tries < out[j].tries })
	return out
}

func (e *Engine) attempt(sweep, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m := e.tried[sweep]; m != nil {
		m[id]++
	}
}

// FixPrimary repairs primary-language titles and summaries within the last
// days, touching at most limit records.
func (e *Engine) FixPrimary(ctx context.Context, days, limit int) (int, error) {
	log := logger.Component("consistency").With().Str("sweep", "primary").Logger()

	recs, err := e.window(ctx, days)
	if err != nil {
		return 0, err
	}

	fixed, attempted := 0, 0
	for _, c := range e.queue("primary", recs, primaryDeficits) {
		if attempted >= limit {
			break
		}
		if attempted > 0 {
			if err := e.pause(ctx); err != nil {
				return fixed, err
			}
		}
		attempted++
		rec, need := c.rec, c.need
		e.attempt("primary", rec.ID)

		out, err := e.tr.ToPrimary(ctx, rec.Title, models.Deref(rec.SummaryPrimary))
		if err != nil {
			log.Error().Err(err).Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Msg("Primary translation failed")
			continue
		}

		var patch models.RecordPatch
		if need.title && out.Title != "" && !lang.IsEnglish(out.Title) {
			patch.Title = models.StringPtr(out.Title)
		}
		if need.summary && out.Summary != "" && !lang.IsEnglish(out.Summary) {
			patch.SummaryPrimary = models.StringPtr(out.Summary)
		}
		if e.apply(ctx, rec, patch) {
			fixed++
		}
	}

	log.Info().Int("window", len(recs)).Int("attempted", attempted).Int("fixed", fixed).Msg("Sweep finished")
	return fixed, nil
}

// FixSecondary repairs English titles and summaries within the last days,
// translating from primary content and falling back to the existing
// English text when no primary content exists.
func (e *Engine) FixSecondary(ctx context.Context, days, limit int) (int, error) {
	log := logger.Component("consistency").With().Str("sweep", "secondary").Logger()

	recs, err := e.window(ctx, days)
	if err != nil {
		return 0, err
	}

	fixed, attempted := 0, 0
	for _, c := range e.queue("secondary", recs, secondaryDeficits) {
		if attempted >= limit {
			break
		}
		if attempted > 0 {
			if err := e.pause(ctx); err != nil {
				return fixed, err
			}
		}
		attempted++
		rec, need := c.rec, c.need
		e.attempt("secondary", rec.ID)

		title := rec.Title
		if title == "" {
			title = models.Deref(rec.TitleEN)
		}
		summary := models.Deref(rec.SummaryPrimary)
		if summary == "" {
			summary = models.Deref(rec.SummaryEN)
		}

		out, err := e.tr.ToEnglish(ctx, title, summary)
		if err != nil {
			log.Error().Err(err).Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Msg("English translation failed")
			continue
		}

		var patch models.RecordPatch
		if need.title && lang.IsEnglishSlot(out.Title) {
			patch.TitleEN = models.StringPtr(out.Title)
		}
		if need.summary && lang.IsEnglishSlot(out.Summary) {
			patch.SummaryEN = models.StringPtr(out.Summary)
		}
		if e.apply(ctx, rec, patch) {
			fixed++
		}
	}

	log.Info().Int("window", len(recs)).Int("attempted", attempted).Int("fixed", fixed).Msg("Sweep finished")
	return fixed, nil
}

// Sweep runs the primary sweep, then the secondary sweep on freshly read
// records. A failing primary sweep does not stop the secondary one.
func (e *Engine) Sweep(ctx context.Context, days, limit int) (SweepReport, error) {
	var report SweepReport
	var errs []error

	n, err := e.FixPrimary(ctx, days, limit)
	report.Primary = n
	if err != nil {
		errs = append(errs, fmt.Errorf("primary sweep: %w", err))
	}
	if ctx.Err() == nil {
		n, err = e.FixSecondary(ctx, days, limit)
		report.Secondary = n
		if err != nil {
			errs = append(errs, fmt.Errorf("secondary sweep: %w", err))
		}
	}
	return report, errors.Join(errs...)
}

// AuditTitles is the quick title-only pass. It uses the title classifier,
// which also flags mixed titles dominated by Latin script.
func (e *Engine) AuditTitles(ctx context.Context, days, limit int) (int, error) {
	log := logger.Component("consistency").With().Str("sweep", "titles").Logger()

	recs, err := e.window(ctx, days)
	if err != nil {
		return 0, err
	}

	fixed, attempted := 0, 0
	for _, c := range e.queue("titles", recs, auditDeficits) {
		if attempted >= limit {
			break
		}
		if attempted > 0 {
			if err := e.pause(ctx); err != nil {
				return fixed, err
			}
		}
		attempted++
		rec := c.rec
		e.attempt("titles", rec.ID)

		out, err := e.tr.ToPrimary(ctx, rec.Title, "")
		if err != nil {
			log.Error().Err(err).Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Msg("Title translation failed")
			continue
		}
		var patch models.RecordPatch
		if out.Title != "" && !lang.IsEnglishTitle(out.Title) {
			patch.Title = models.StringPtr(out.Title)
		}
		if e.apply(ctx, rec, patch) {
			fixed++
		}
	}

	log.Info().Int("window", len(recs)).Int("attempted", attempted).Int("fixed", fixed).Msg("Title audit finished")
	return fixed, nil
}

func (e *Engine) window(ctx context.Context, days int) ([]models.NewsRecord, error) {
	since := e.now().AddDate(0, 0, -days)
	recs, err := e.store.List(ctx, storage.Query{PublishedSince: since})
	if err != nil {
		return nil, fmt.Errorf("list window: %w", err)
	}
	return recs, nil
}

func (e *Engine) apply(ctx context.Context, rec *models.NewsRecord, patch models.RecordPatch) bool {
	log := logger.Component("consistency")
	if patch.IsEmpty() {
		log.Debug().Str("id", rec.ID).Msg("Translation did not pass the classifier, leaving record for next sweep")
		return false
	}
	if err := e.store.Update(ctx, rec.ID, patch); err != nil {
		log.Error().Err(err).Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Msg("Failed to store repair")
		return false
	}
	return true
}

func (e *Engine) pause(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
