package api

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newsbridge/internal/app"
	"github.com/bilgisen/newsbridge/internal/consistency"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/middleware"
	"github.com/bilgisen/newsbridge/internal/models"
	"github.com/bilgisen/newsbridge/internal/pipeline"
	"github.com/bilgisen/newsbridge/internal/storage"
	"github.com/bilgisen/newsbridge/internal/trends"
	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

type Workflow interface {
	Ingest(ctx context.Context) (pipeline.IngestReport, error)
	Summarize(ctx context.Context, quota int) (pipeline.SummarizeReport, error)
	Manual(ctx context.Context) (pipeline.ManualReport, error)
	Daily(ctx context.Context, now time.Time) (pipeline.DailyReport, error)
}

type Consistency interface {
	Sweep(ctx context.Context, days, limit int) (consistency.SweepReport, error)
	AuditTitles(ctx context.Context, days, limit int) (int, error)
}

type Translator interface {
	Translate(ctx context.Context, ids []string) ([]models.TranslationResult, error)
	TranslateOne(ctx context.Context, id string) (*models.TranslationResult, error)
	Backfill(ctx context.Context, limit int) (int, error)
}

type Trends interface {
	Run(ctx context.Context, now time.Time) (*models.WeeklyTrends, error)
	Generate(ctx context.Context, now time.Time) (*models.WeeklyTrends, error)
}

// Defaults fill query parameters the caller leaves out.
type Defaults struct {
	SummarizeQuota   int
	ConsistencyDays  int
	ConsistencyLimit int
	BackfillLimit    int
}

// Services are the collaborators behind the HTTP triggers.
type Services struct {
	Store       storage.Store
	Workflow    Workflow
	Consistency Consistency
	Translate   Translator
	Trends      Trends
	Defaults    Defaults
	// Location fixes week boundaries for the trends read helper.
	Location *time.Location
}

type Handlers struct {
	svc Services
	now func() time.Time
}

func NewHandlers(svc Services) *Handlers {
	return &Handlers{svc: svc, now: time.Now}
}

// HandlersFromApp exposes a built pipeline over HTTP.
func HandlersFromApp(a *app.App) *Handlers {
	return NewHandlers(Services{
		Store:       a.Store,
		Workflow:    a.Workflow,
		Consistency: a.Consistency,
		Translate:   a.Translate,
		Trends:      a.Trends,
		Location:    a.Config.Location(),
		Defaults: Defaults{
			SummarizeQuota:   a.Config.SummarizeQuota,
			ConsistencyDays:  a.Config.ConsistencyDays,
			ConsistencyLimit: a.Config.ConsistencyLimit,
			BackfillLimit:    a.Config.BackfillLimit,
		},
	})
}

type runQuery struct {
	Limit int  `query:"limit" validate:"omitempty,min=1,max=200"`
	Days  int  `query:"days" validate:"omitempty,min=1,max=90"`
	Force bool `query:"force"`
}

type newsQuery struct {
	Q     string `query:"q" validate:"max=200"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

type batchRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=50,dive,required"`
}

func query(c *fiber.Ctx) *runQuery {
	if q, ok := c.Locals(middleware.QueryKey).(*runQuery); ok {
		return q
	}
	return &runQuery{}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code := "ok", fiber.StatusOK
	if err := h.svc.Store.Ping(ctx); err != nil {
		logger.Component("http").Error().Err(err).Msg("Storage ping failed")
		status, code = "degraded", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"version": version,
		"time":    h.now().Format(time.RFC3339),
	})
}

// ListNews handles GET /news
func (h *Handlers) ListNews(c *fiber.Ctx) error {
	q, _ := c.Locals(middleware.QueryKey).(*newsQuery)
	if q == nil {
		q = &newsQuery{}
	}
	limit := orDefault(q.Limit, 20)

	items, err := h.svc.Store.List(c.UserContext(), storage.Query{TitleContains: q.Q, Limit: limit})
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.NewsRecord{}
	}
	return c.JSON(fiber.Map{
		"limit": limit,
		"total": len(items),
		"items": items,
	})
}

// GetNews handles GET /news/:id
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	rec, err := h.svc.Store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// Ingest handles /cron/ingest
func (h *Handlers) Ingest(c *fiber.Ctx) error {
	report, err := h.svc.Workflow.Ingest(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "report": report})
}

// Summarize handles /cron/summarize
func (h *Handlers) Summarize(c *fiber.Ctx) error {
	limit := orDefault(query(c).Limit, h.svc.Defaults.SummarizeQuota)
	report, err := h.svc.Workflow.Summarize(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "report": report})
}

// Daily handles /cron/daily
func (h *Handlers) Daily(c *fiber.Ctx) error {
	report, err := h.svc.Workflow.Daily(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "report": report})
}

// Consistency handles /cron/consistency
func (h *Handlers) Consistency(c *fiber.Ctx) error {
	q := query(c)
	days := orDefault(q.Days, h.svc.Defaults.ConsistencyDays)
	limit := orDefault(q.Limit, h.svc.Defaults.ConsistencyLimit)

	report, err := h.svc.Consistency.Sweep(c.UserContext(), days, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "days": days, "limit": limit, "report": report})
}

// AuditTitles handles /cron/audit-titles
func (h *Handlers) AuditTitles(c *fiber.Ctx) error {
	q := query(c)
	days := orDefault(q.Days, h.svc.Defaults.ConsistencyDays)
	limit := orDefault(q.Limit, h.svc.Defaults.ConsistencyLimit)

	fixed, err := h.svc.Consistency.AuditTitles(c.UserContext(), days, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "fixed": fixed})
}

// Backfill handles /cron/backfill
func (h *Handlers) Backfill(c *fiber.Ctx) error {
	limit := orDefault(query(c).Limit, h.svc.Defaults.BackfillLimit)
	n, err := h.svc.Translate.Backfill(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "translated": n})
}

// WeeklyTrends handles /cron/trends. force=true regenerates a week that
// already has a digest.
func (h *Handlers) WeeklyTrends(c *fiber.Ctx) error {
	run := h.svc.Trends.Run
	if query(c).Force {
		run = h.svc.Trends.Generate
	}

	w, err := run(c.UserContext(), h.now())
	if errors.Is(err, trends.ErrSkipped) {
		return c.JSON(fiber.Map{"status": "skipped", "reason": err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "trends": w})
}

// GetTrends handles GET /trends and GET /trends/:week. Any date inside a
// week selects that week; without one the current week is returned.
func (h *Handlers) GetTrends(c *fiber.Ctx) error {
	loc := h.svc.Location
	if loc == nil {
		loc = time.UTC
	}

	day := h.now()
	if raw := c.Params("week"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "week must be a date like 2026-10-12")
		}
		day = parsed
	}

	w, err := h.svc.Store.GetWeeklyTrends(c.UserContext(), trends.WeekStart(day, loc))
	if err != nil {
		return err
	}
	return c.JSON(w)
}

// Refresh handles POST /admin/refresh
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	report, err := h.svc.Workflow.Manual(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "report": report})
}

// TranslateOne handles POST /translate/:id
func (h *Handlers) TranslateOne(c *fiber.Ctx) error {
	res, err := h.svc.Translate.TranslateOne(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// TranslateBatch handles POST /translate/batch
func (h *Handlers) TranslateBatch(c *fiber.Ctx) error {
	req := c.Locals(middleware.BodyKey).(*batchRequest)
	results, err := h.svc.Translate.Translate(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	if results == nil {
		results = []models.TranslationResult{}
	}
	return c.JSON(fiber.Map{"results": results})
}
