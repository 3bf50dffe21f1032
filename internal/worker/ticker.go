package worker

import (
	"context"
	"time"

	"github.com/bilgisen/newsbridge/internal/logger"
)

// TickerJob calls Run every Interval. Runs never overlap: a tick that
// arrives while Run is still busy is dropped by the ticker.
type TickerJob struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	// Timeout bounds a single run; zero means no bound beyond ctx.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

func (j *TickerJob) Start(ctx context.Context) error {
	if j.Interval <= 0 {
		j.Interval = time.Hour
	}
	log := logger.Component("worker").With().Str("job", j.Name).Logger()
	log.Info().Dur("interval", j.Interval).Msg("Job scheduled")

	if j.RunOnStart {
		j.runOnce(ctx)
	}

	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Job stopped")
			return nil
		case <-t.C:
			j.runOnce(ctx)
		}
	}
}

func (j *TickerJob) runOnce(ctx context.Context) {
	log := logger.Component("worker").With().Str("job", j.Name).Logger()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Job panicked")
		}
	}()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Job failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Job finished")
}
