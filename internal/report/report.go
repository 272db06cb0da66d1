// Package report writes run summaries in the configured formats.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/runner"
)

// File names inside the report directory.
const (
	JSONFile    = "results.json"
	JUnitFile   = "junit.xml"
	XLSXFile    = "results.xlsx"
	HTMLFile    = "report.html"
	MetricsFile = "boardcheck.prom"
)

type fileWriter struct {
	format string
	name   string
	write  func(path string, s *runner.Summary) error
}

var fileWriters = []fileWriter{
	{config.FormatJSON, JSONFile, WriteJSON},
	{config.FormatJUnit, JUnitFile, WriteJUnit},
	{config.FormatXLSX, XLSXFile, WriteXLSX},
	{config.FormatHTML, HTMLFile, WriteHTML},
	{config.FormatMetrics, MetricsFile, WriteMetrics},
}

// Write renders s in every enabled format. The console format goes to
// console; the others become files in cfg.Dir. A failing format does not stop
// the others. It returns the paths of the files written.
func Write(s *runner.Summary, cfg config.ReportConfig, console io.Writer, logger *zap.Logger) ([]string, error) {
	var errs []error
	if cfg.HasFormat(config.FormatConsole) {
		if err := Console(console, s); err != nil {
			errs = append(errs, fmt.Errorf("console report: %w", err))
		}
	}

	var written []string
	for _, fw := range fileWriters {
		if !cfg.HasFormat(fw.format) {
			continue
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("failed to create report directory %s: %w", cfg.Dir, err))
			break
		}
		path := filepath.Join(cfg.Dir, fw.name)
		if err := fw.write(path, s); err != nil {
			errs = append(errs, fmt.Errorf("%s report: %w", fw.format, err))
			continue
		}
		logger.Debug("report written", zap.String("format", fw.format), zap.String("path", path))
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// Console prints one line per scenario followed by a summary line.
func Console(w io.Writer, s *runner.Summary) error {
	var b strings.Builder
	for _, r := range s.Results {
		fmt.Fprintf(&b, "%-5s %s (%s)\n", label(r.Status), r.Title, round(r.Duration))
		if r.Status == runner.StatusPassed {
			continue
		}
		fmt.Fprintf(&b, "      [%s] %s\n", r.Kind, r.Message)
		if r.Screenshot != "" {
			fmt.Fprintf(&b, "      screenshot: %s\n", r.Screenshot)
		}
	}
	fmt.Fprintf(&b, "\n%d scenarios: %d passed, %d failed, %d errored in %s (run %s)\n",
		s.Total(), s.Passed, s.Failed, s.Errored, round(s.Duration), s.RunID)
	_, err := io.WriteString(w, b.String())
	return err
}

func label(st runner.Status) string {
	switch st {
	case runner.StatusPassed:
		return "PASS"
	case runner.StatusFailed:
		return "FAIL"
	default:
		return "ERROR"
	}
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
