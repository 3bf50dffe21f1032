// Package pipeline wires the scheduled jobs together. Ingest and Summarize
// are the two independently triggered phases; Manual and Daily combine them
// with the rest of the maintenance work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/newsbridge/internal/consistency"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/social"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/trends"
	"github.com/bilgisen/newsbridge/internal/utils"
)

// Collector gathers items from every source.
type Collector interface {
	Collect(ctx context.Context) []models.ScrapedItem
}

// Gate inserts new items and guards the manual trigger.
type Gate interface {
	Ingest(ctx context.Context, items []models.ScrapedItem) int
	CheckRateLimit(ctx context.Context) error
}

// ArticleFetcher returns the readable body of a URL, or "" on failure.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) string
}

type Summarizer interface {
	Summarize(ctx context.Context, title, content string) (*models.Summary, error)
}

type Backfiller interface {
	Backfill(ctx context.Context, limit int) (int, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, days, limit int) (consistency.SweepReport, error)
}

type TrendsRunner interface {
	Due(now time.Time) bool
	Run(ctx context.Context, now time.Time) (*models.WeeklyTrends, error)
}

// Settings are the per-run budgets.
type Settings struct {
	SummarizeQuota   int
	ManualQuota      int
	SummarizeDelay   time.Duration
	BackfillLimit    int
	ConsistencyDays  int
	ConsistencyLimit int
}

// Deps collects the workflow collaborators. Backfill, Sweeper and Trends
// are only used by Daily and may be nil.
type Deps struct {
	Store      storage.Store
	Collector  Collector
	Gate       Gate
	Articles   ArticleFetcher
	Summarizer Summarizer
	Social     social.Dispatcher
	Backfill   Backfiller
	Sweeper    Sweeper
	Trends     TrendsRunner
}

type Workflow struct {
	deps     Deps
	settings Settings
}

func NewWorkflow(deps Deps, settings Settings) *Workflow {
	if deps.Social == nil {
		deps.Social = social.Nop{}
	}
	if settings.SummarizeQuota <= 0 {
		settings.SummarizeQuota = 3
	}
	if settings.ManualQuota <= 0 {
		settings.ManualQuota = 2
	}
	return &Workflow{deps: deps, settings: settings}
}

type IngestReport struct {
	Collected int    `json:"collected"`
	Inserted  int    `json:"inserted"`
	Duration  string `json:"duration"`
}

type SummarizeReport struct {
	Selected   int      `json:"selected"`
	Summarized int      `json:"summarized"`
	Failed     int      `json:"failed"`
	IDs        []string `json:"ids"`
}

type ManualReport struct {
	Ingest    IngestReport    `json:"ingest"`
	Summarize SummarizeReport `json:"summarize"`
}

type DailyReport struct {
	Ingest      IngestReport            `json:"ingest"`
	Summarize   SummarizeReport         `json:"summarize"`
	Backfilled  int                     `json:"backfilled"`
	Consistency consistency.SweepReport `json:"consistency"`
	Trends      string                  `json:"trends"`
	Errors      []string                `json:"errors,omitempty"`
}

// Ingest is phase one: collect from every source and insert new items.
func (w *Workflow) Ingest(ctx context.Context) (IngestReport, error) {
	start := time.Now()
	items := w.deps.Collector.Collect(ctx)
	inserted := w.deps.Gate.Ingest(ctx, items)
	report := IngestReport{
		Collected: len(items),
		Inserted:  inserted,
		Duration:  time.Since(start).Round(time.Millisecond).String(),
	}
	logger.Component("pipeline").Info().
		Int("collected", report.Collected).
		Int("inserted", report.Inserted).
		Str("duration", report.Duration).
		Msg("Ingest phase finished")
	return report, ctx.Err()
}

// Summarize is phase two: summarize up to quota pending records, newest
// first, one at a time.
func (w *Workflow) Summarize(ctx context.Context, quota int) (SummarizeReport, error) {
	log := logger.Component("pipeline")
	if quota <= 0 {
		quota = w.settings.SummarizeQuota
	}

	pending, err := w.deps.Store.List(ctx, storage.Query{PendingSummary: true, Limit: quota})
	if err != nil {
		return SummarizeReport{}, fmt.Errorf("fetch pending records: %w", err)
	}

	report := SummarizeReport{Selected: len(pending), IDs: []string{}}
	for i := range pending {
		rec := &pending[i]
		if i > 0 {
			if err := sleep(ctx, w.settings.SummarizeDelay); err != nil {
				return report, err
			}
		}
		if w.summarizeOne(ctx, rec) {
			report.Summarized++
			report.IDs = append(report.IDs, rec.ID)
		} else {
			report.Failed++
		}
	}

	log.Info().
		Int("selected", report.Selected).
		Int("summarized", report.Summarized).
		Int("failed", report.Failed).
		Msg("Summarize phase finished")
	return report, nil
}

func (w *Workflow) summarizeOne(ctx context.Context, rec *models.NewsRecord) bool {
	log := logger.Component("pipeline").With().Str("id", rec.ID).Str("title", utils.Prefix(rec.Title)).Logger()

	content := w.deps.Articles.Fetch(ctx, rec.OriginalURL)
	if content == "" {
		log.Warn().Str("url", rec.OriginalURL).Msg("Article body unavailable, summarizing from title")
	}

	sum, err := w.deps.Summarizer.Summarize(ctx, rec.Title, content)
	if err != nil {
		log.Error().Err(err).Msg("Summarization failed")
		return false
	}

	tags := sum.Tags
	patch := models.RecordPatch{
		Title:          models.StringPtr(sum.TitlePrimary),
		SummaryPrimary: models.StringPtr(sum.SummaryPrimary),
		SummaryEN:      models.StringPtr(sum.SummaryEN),
		Tags:           &tags,
	}
	if err := w.deps.Store.Update(ctx, rec.ID, patch); err != nil {
		log.Error().Err(err).Msg("Failed to store summary")
		return false
	}

	w.deps.Social.Dispatch(social.Post{
		Title:    sum.TitlePrimary,
		Takeaway: sum.SummaryPrimary,
		URL:      rec.OriginalURL,
		Tags:     sum.Tags,
	})
	log.Info().Int("tags", len(sum.Tags)).Msg("Summarized record")
	return true
}

// Manual is the interactive refresh: rate limit first, then both phases
// with the small manual quota. A rate-limited call does no work.
func (w *Workflow) Manual(ctx context.Context) (ManualReport, error) {
	if err := w.deps.Gate.CheckRateLimit(ctx); err != nil {
		return ManualReport{}, err
	}

	var report ManualReport
	var err error
	if report.Ingest, err = w.Ingest(ctx); err != nil {
		return report, err
	}
	report.Summarize, err = w.Summarize(ctx, w.settings.ManualQuota)
	return report, err
}

// Daily runs every job once. A failing step is recorded in the report and
// the remaining steps still run.
func (w *Workflow) Daily(ctx context.Context, now time.Time) (DailyReport, error) {
	log := logger.Component("pipeline")
	var report DailyReport
	record := func(step string, err error) {
		if err != nil {
			log.Error().Err(err).Str("step", step).Msg("Daily step failed")
			report.Errors = append(report.Errors, step+": "+err.Error())
		}
	}

	var err error
	report.Ingest, err = w.Ingest(ctx)
	record("ingest", err)

	report.Summarize, err = w.Summarize(ctx, w.settings.SummarizeQuota)
	record("summarize", err)

	if w.deps.Backfill != nil {
		report.Backfilled, err = w.deps.Backfill.Backfill(ctx, w.settings.BackfillLimit)
		record("backfill", err)
	}

	if w.deps.Sweeper != nil {
		report.Consistency, err = w.deps.Sweeper.Sweep(ctx, w.settings.ConsistencyDays, w.settings.ConsistencyLimit)
		record("consistency", err)
	}

	report.Trends = "not due"
	if w.deps.Trends != nil && w.deps.Trends.Due(now) {
		tr, err := w.deps.Trends.Run(ctx, now)
		switch {
		case errors.Is(err, trends.ErrSkipped):
			report.Trends = err.Error()
		case err != nil:
			report.Trends = "failed"
			record("trends", err)
		default:
			report.Trends = "synthesized " + tr.WeekKey()
		}
	}

	log.Info().Int("errors", len(report.Errors)).Str("trends", report.Trends).Msg("Daily run finished")
	return report, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
