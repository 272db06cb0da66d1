package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/runner"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun the suite whenever the configuration or dataset changes",
	RunE:  runWatch,
}

func init() {
	addRunFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", runner.DefaultDebounce, "Quiet period before a rerun")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _, err := loadRun(cmd)
	if err != nil {
		return err
	}

	files := []string{cfg.Dataset, configFile()}
	w, err := runner.NewWatcher(files, watchDebounce, logger)
	if err != nil {
		return err
	}

	return w.Run(ctx, func(ctx context.Context) error {
		_, err := executeSuite(ctx, cmd)
		return err
	})
}

// configFile is the configuration file actually in use, or "" when the run
// relies on defaults and environment only.
func configFile() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.DefaultPath
	}
	return ""
}
