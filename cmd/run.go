package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bilgisen/newsbridge/internal/app"
	"github.com/bilgisen/newsbridge/internal/trends"
	"github.com/spf13/cobra"
)

var (
	runLimit int
	runDays  int
	runForce bool
)

var runCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run one pipeline job and print its report",
	ValidArgs: []string{"ingest", "summarize", "refresh", "daily", "consistency", "audit-titles", "backfill", "trends"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
		defer cancel()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := runJob(ctx, a, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "item budget (0 uses the configured default)")
	runCmd.Flags().IntVar(&runDays, "days", 0, "lookback window in days for consistency jobs")
	runCmd.Flags().BoolVar(&runForce, "force", false, "regenerate this week's trends even if already done")
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func runJob(ctx context.Context, a *app.App, job string) (interface{}, error) {
	days := orDefault(runDays, cfg.ConsistencyDays)
	switch job {
	case "ingest":
		return a.Workflow.Ingest(ctx)
	case "summarize":
		return a.Workflow.Summarize(ctx, orDefault(runLimit, cfg.SummarizeQuota))
	case "refresh":
		return a.Workflow.Manual(ctx)
	case "daily":
		return a.Workflow.Daily(ctx, time.Now())
	case "consistency":
		return a.Consistency.Sweep(ctx, days, orDefault(runLimit, cfg.ConsistencyLimit))
	case "audit-titles":
		n, err := a.Consistency.AuditTitles(ctx, days, orDefault(runLimit, cfg.ConsistencyLimit))
		return map[string]int{"fixed": n}, err
	case "backfill":
		n, err := a.Translate.Backfill(ctx, orDefault(runLimit, cfg.BackfillLimit))
		return map[string]int{"translated": n}, err
	case "trends":
		run := a.Trends.Run
		if runForce {
			run = a.Trends.Generate
		}
		w, err := run(ctx, time.Now())
		if errors.Is(err, trends.ErrSkipped) {
			return map[string]string{"status": "skipped", "reason": err.Error()}, nil
		}
		return w, err
	}
	return nil, fmt.Errorf("unknown job %q", job)
}
