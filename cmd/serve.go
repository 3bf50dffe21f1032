package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/newsbridge/internal/api"
	"github.com/bilgisen/newsbridge/internal/app"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP triggers and, if enabled, the in-process schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()
		log.Info().Str("env", cfg.Env).Msg("Starting application...")

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		server := fiber.New(fiber.Config{
			ReadTimeout:  cfg.HTTPTimeout,
			WriteTimeout: cfg.HTTPTimeout,
			IdleTimeout:  120 * time.Second,
			ErrorHandler: middleware.ErrorHandler,
		})
		server.Use(recover.New())
		server.Use(requestid.New())
		server.Use(middleware.RequestLogger())

		api.SetupRoutes(server, api.HandlersFromApp(a), api.RouteConfig{
			Secret: cfg.CronSecret,
			Local:  cfg.IsLocal(),
		})

		schedDone := make(chan error, 1)
		if cfg.SchedulerEnabled {
			sched := a.Scheduler()
			log.Info().Int("jobs", sched.Len()).Msg("Starting scheduler")
			go func() { schedDone <- sched.Start(ctx) }()
		} else {
			close(schedDone)
		}

		listenErr := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Port).Msg("Starting server")
			listenErr <- server.Listen(":" + cfg.Port)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-quit:
		case err := <-listenErr:
			stop()
			<-schedDone
			return err
		}

		log.Info().Msg("Shutting down server...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Scheduler stopped with errors")
		}

		log.Info().Msg("Server exited properly")
		return nil
	},
}
