package api

import (
	"github.com/bilgisen/newsbridge/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// RouteConfig configures trigger authentication.
type RouteConfig struct {
	Secret string
	// Local disables trigger authentication.
	Local bool
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, cfg RouteConfig) {
	auth := middleware.SecretAuth(cfg.Secret, cfg.Local)
	runParams := middleware.ValidateQuery[runQuery]()

	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	news := api.Group("/news")
	{
		news.Get("", middleware.ValidateQuery[newsQuery](), h.ListNews)
		news.Get("/:id", h.GetNews)
	}

	api.Get("/trends", h.GetTrends)
	api.Get("/trends/:week", h.GetTrends)

	// Read-side translation, called by the UI without credentials
	translate := api.Group("/translate")
	{
		translate.Post("/batch", middleware.ValidateBody[batchRequest](), h.TranslateBatch)
		translate.Post("/:id", h.TranslateOne)
	}

	// Scheduled triggers accept GET and POST
	cron := api.Group("/cron", auth)
	for path, handler := range map[string]fiber.Handler{
		"/ingest":       h.Ingest,
		"/summarize":    h.Summarize,
		"/daily":        h.Daily,
		"/consistency":  h.Consistency,
		"/audit-titles": h.AuditTitles,
		"/backfill":     h.Backfill,
		"/trends":       h.WeeklyTrends,
	} {
		cron.Get(path, runParams, handler)
		cron.Post(path, runParams, handler)
	}

	admin := api.Group("/admin", auth)
	{
		admin.Post("/refresh", h.Refresh)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})
}
