package main

import (
	"fmt"

	"github.com/bilgisen/newsbridge/internal/config"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "newsbridge",
	Short:         "Bilingual AI news pipeline",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}

		output := "stdout"
		if cfg.LogFile != "" {
			output = cfg.LogFile
		}
		if err := logger.Init(logger.Config{
			Level:  cfg.LogLevel,
			Output: output,
			Pretty: cfg.IsLocal(),
		}); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)
}
