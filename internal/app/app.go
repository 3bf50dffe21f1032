// Package app builds the pipeline context once at process start and hands
// the same collaborators to the HTTP layer, the CLI and the scheduler.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/newsbridge/internal/ai"
	"github.com/bilgisen/newsbridge/internal/archive"
	"github.com/bilgisen/newsbridge/internal/article"
	"github.com/bilgisen/newsbridge/internal/cache"
	"github.com/bilgisen/newsbridge/internal/config"
	"github.com/bilgisen/newsbridge/internal/consistency"
	"github.com/bilgisen/newsbridge/internal/feed"
	"github.com/bilgisen/newsbridge/internal/ingest"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/pipeline"
	"github.com/bilgisen/newsbridge/internal/social"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/translate"
	"github.com/bilgisen/newsbridge/internal/trends"
	"github.com/bilgisen/newsbridge/internal/worker"
)

// App holds every long-lived collaborator.
type App struct {
	Config      *config.Config
	Store       storage.Store
	Cache       cache.Cache
	LLM         ai.Completer
	Aggregator  *feed.Aggregator
	Gate        *ingest.Gate
	Workflow    *pipeline.Workflow
	Consistency *consistency.Engine
	Translate   *translate.Service
	Trends      *trends.Synthesizer

	social  social.Dispatcher
	closers []func()
}

// New connects to the configured backends. Without DATABASE_URL or
// REDIS_URL the in-memory implementations are used.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	llm, err := ai.NewOpenAI(ai.Config{
		APIKey:  cfg.AIApiKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewWithLLM(ctx, cfg, llm)
}

// NewWithLLM is New with an injected language model.
func NewWithLLM(ctx context.Context, cfg *config.Config, llm ai.Completer) (*App, error) {
	log := logger.Component("app")
	a := &App{Config: cfg, LLM: llm}

	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.Store = pg
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		a.Store = storage.NewMemoryStore()
	}
	a.closers = append(a.closers, a.Store.Close)

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisClient(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = rc
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-memory cache")
		a.Cache = cache.NewMemoryClient()
	}
	a.closers = append(a.closers, func() {
		if err := a.Cache.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache")
		}
	})

	sourceCfgs, err := feed.LoadSources(cfg.SourcesFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	sources, err := feed.BuildSources(sourceCfgs, feed.NewFetcher(feed.FetcherConfig{RetryCount: 1}))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build sources: %w", err)
	}
	a.Aggregator = feed.NewAggregator(sources...)

	a.Gate = ingest.NewGate(a.Store,
		ingest.WithCache(a.Cache, cfg.CacheTTL),
		ingest.WithCooldown(cfg.ManualCooldown),
	)

	if cfg.SocialWebhookURL != "" {
		wd := social.NewWebhookDispatcher(cfg.SocialWebhookURL, 10*time.Second, 0)
		a.social = wd
		a.closers = append(a.closers, wd.Close)
	} else {
		a.social = social.Nop{}
	}

	var arch archive.Archiver = archive.Nop{}
	if cfg.ArchiveEnabled() {
		r2, err := archive.NewR2(ctx, archive.R2Config{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
		})
		if err != nil {
			log.Error().Err(err).Msg("R2 archive unavailable, snapshots disabled")
		} else {
			arch = r2
		}
	}

	translator := ai.NewTranslator(llm)
	a.Translate = translate.NewService(a.Store, translator, cfg.TranslateBatchSize)
	a.Consistency = consistency.NewEngine(a.Store, translator, consistency.WithDelay(cfg.ConsistencyDelay))
	a.Trends = trends.NewSynthesizer(a.Store, translator, a.Cache, arch, cfg.Location(), cfg.TrendsWeekday)

	a.Workflow = pipeline.NewWorkflow(pipeline.Deps{
		Store:      a.Store,
		Collector:  a.Aggregator,
		Gate:       a.Gate,
		Articles:   article.NewHTTPFetcher(cfg.ArticleFetchTimeout, cfg.ContentMaxChars),
		Summarizer: ai.NewSummarizer(llm, cfg.ContentMaxChars),
		Social:     a.social,
		Backfill:   a.Translate,
		Sweeper:    a.Consistency,
		Trends:     a.Trends,
	}, pipeline.Settings{
		SummarizeQuota:   cfg.SummarizeQuota,
		ManualQuota:      cfg.ManualQuota,
		SummarizeDelay:   cfg.SummarizeDelay,
		BackfillLimit:    cfg.BackfillLimit,
		ConsistencyDays:  cfg.ConsistencyDays,
		ConsistencyLimit: cfg.ConsistencyLimit,
	})

	log.Info().Int("sources", len(sources)).Bool("archive", cfg.ArchiveEnabled()).Msg("Pipeline ready")
	return a, nil
}

// Scheduler returns the in-process schedule. Each job is bounded by the
// HTTP timeout, the same ceiling a triggered run gets.
func (a *App) Scheduler() *worker.Manager {
	cfg := a.Config
	job := func(name string, every time.Duration, run func(ctx context.Context) error) worker.Worker {
		return &worker.TickerJob{Name: name, Interval: every, Timeout: cfg.HTTPTimeout, Run: run}
	}
	return worker.NewManager(
		job("ingest", cfg.IngestInterval, func(ctx context.Context) error {
			_, err := a.Workflow.Ingest(ctx)
			return err
		}),
		job("summarize", cfg.SummarizeInterval, func(ctx context.Context) error {
			_, err := a.Workflow.Summarize(ctx, cfg.SummarizeQuota)
			return err
		}),
		job("consistency", cfg.ConsistencyInterval, func(ctx context.Context) error {
			_, err := a.Consistency.Sweep(ctx, cfg.ConsistencyDays, cfg.ConsistencyLimit)
			return err
		}),
		job("backfill", cfg.BackfillInterval, func(ctx context.Context) error {
			_, err := a.Translate.Backfill(ctx, cfg.BackfillLimit)
			return err
		}),
		job("daily", cfg.DailyInterval, func(ctx context.Context) error {
			_, err := a.Workflow.Daily(ctx, time.Now())
			return err
		}),
	)
}

// Close releases backends in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
