package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/boardcheck/internal/runner"
	"github.com/gotrs-io/boardcheck/internal/runner/tasks"
)

var (
	scheduleSpec    string
	scheduleTimeout time.Duration
	scheduleNow     bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rerun the suite on a cron schedule until interrupted",
	Long: `Schedule reruns the suite on a cron expression. Five-field expressions,
an optional leading seconds field and descriptors such as "@every 15m" are
accepted. A run still in progress when the next one is due is skipped.`,
	RunE: runSchedule,
}

func init() {
	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "@every 15m", "Cron expression")
	scheduleCmd.Flags().DurationVar(&scheduleTimeout, "timeout", 30*time.Minute, "Upper bound for one run")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run once immediately before waiting for the schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if err := runner.ValidateSchedule(scheduleSpec); err != nil {
		return err
	}
	// Fail fast on a broken configuration instead of at the first tick.
	if _, _, err := loadRun(cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suite := tasks.NewSuiteTask(scheduleSpec, scheduleTimeout, func(ctx context.Context) (*runner.Summary, error) {
		return executeSuite(ctx, cmd)
	}, logger)

	registry := runner.NewTaskRegistry()
	if err := registry.Register(suite); err != nil {
		return err
	}
	scheduler := runner.NewScheduler(registry, logger)

	if scheduleNow {
		// Failures are logged by the scheduler; keep the schedule running.
		_ = scheduler.RunNow(ctx, suite.Name())
	}
	return scheduler.Start(ctx)
}
