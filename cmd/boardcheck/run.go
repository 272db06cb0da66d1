package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
	"github.com/gotrs-io/boardcheck/internal/report"
	"github.com/gotrs-io/boardcheck/internal/runner"
)

// runOptions are the command line overrides shared by run, watch and schedule.
type runOptions struct {
	dataset   string
	only      []string
	engine    string
	parallel  int
	reportDir string
	formats   []string
	headed    bool
}

var runFlags runOptions

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runFlags.dataset, "dataset", "", "Dataset file (overrides the configured one)")
	f.StringSliceVar(&runFlags.only, "only", nil, "Run only the scenarios with these ids")
	f.StringVar(&runFlags.engine, "engine", "", "Browser engine: playwright, rod or http")
	f.IntVar(&runFlags.parallel, "parallel", 0, "Scenarios to run at once")
	f.StringVar(&runFlags.reportDir, "report-dir", "", "Directory for report files")
	f.StringSliceVar(&runFlags.formats, "format", nil, "Report formats: console, json, junit, xlsx, html, metrics")
	f.BoolVar(&runFlags.headed, "headed", false, "Show the browser window")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Verify every dataset scenario once",
	Long: `Run loads the configuration and dataset, verifies each scenario in its own
browser session and writes the configured reports. The exit status is non-zero
when any scenario fails or errors.`,
	RunE: runSuite,
}

func init() {
	addRunFlags(runCmd)
}

// errNotAllPassed is returned when a run completes with failures.
var errNotAllPassed = errors.New("not all scenarios passed")

func runSuite(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := executeSuite(ctx, cmd)
	if err != nil {
		return err
	}
	if !summary.OK() {
		return fmt.Errorf("%w: %d failed, %d errored of %d", errNotAllPassed, summary.Failed, summary.Errored, summary.Total())
	}
	return nil
}

// loadRun loads configuration and dataset and applies command line overrides.
func loadRun(cmd *cobra.Command) (*config.Config, dataset.Dataset, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Dataset = runFlags.dataset
	}
	if flags.Changed("engine") {
		cfg.Browser.Engine = runFlags.engine
	}
	if flags.Changed("parallel") {
		cfg.Runner.Parallel = runFlags.parallel
	}
	if flags.Changed("report-dir") {
		cfg.Report.Dir = runFlags.reportDir
	}
	if flags.Changed("format") {
		cfg.Report.Formats = runFlags.formats
	}
	if flags.Changed("headed") {
		cfg.Browser.Headless = !runFlags.headed
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ds, err := dataset.Load(cfg.Dataset)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range ds.DuplicateIDs() {
		logger.Warn("duplicate scenario id", zap.String("id", id))
	}
	if len(runFlags.only) > 0 {
		ds = ds.Filter(runFlags.only...)
		if len(ds) == 0 {
			return nil, nil, fmt.Errorf("no scenarios match --only %v", runFlags.only)
		}
	}
	return cfg, ds, nil
}

// executeSuite performs one complete run: load, verify, report.
func executeSuite(ctx context.Context, cmd *cobra.Command) (*runner.Summary, error) {
	cfg, ds, err := loadRun(cmd)
	if err != nil {
		return nil, err
	}

	engine, err := browser.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("failed to close browser", zap.Error(err))
		}
	}()

	summary, runErr := runner.New(cfg, engine, logger).Run(ctx, ds)
	written, reportErr := report.Write(summary, cfg.Report, cmd.OutOrStdout(), logger)
	for _, path := range written {
		logger.Info("report written", zap.String("path", path))
	}
	return summary, errors.Join(runErr, reportErr)
}
