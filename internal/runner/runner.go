// Package runner executes dataset scenarios against the board, one isolated
// browser session per scenario, and reruns suites on a schedule or when
// inputs change.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gotrs-io/boardcheck/internal/board"
	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
)

const screenshotTimeout = 10 * time.Second

// Runner executes scenarios against one engine.
type Runner struct {
	cfg    *config.Config
	engine browser.Engine
	logger *zap.Logger
}

// New creates a runner. The engine stays owned by the caller.
func New(cfg *config.Config, engine browser.Engine, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}
}

// Run executes every scenario and returns their results in dataset order. A
// failing scenario never stops its siblings. The returned error is non-nil
// only when ctx ended before the run completed; the summary is still valid.
func (r *Runner) Run(ctx context.Context, ds dataset.Dataset) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]Result, len(ds)),
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	parallel := r.cfg.Runner.Parallel
	if parallel < 1 {
		parallel = 1
	}
	logger.Info("run started", zap.Int("scenarios", len(ds)), zap.Int("parallel", parallel))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, sc := range ds {
		g.Go(func() error {
			summary.Results[i] = r.runScenario(ctx, sc, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(summary.StartedAt)
	summary.count()
	logger.Info("run finished",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("errored", summary.Errored),
		zap.Duration("duration", summary.Duration))

	return summary, ctx.Err()
}

func (r *Runner) runScenario(ctx context.Context, sc dataset.Scenario, logger *zap.Logger) (res Result) {
	res = Result{
		Scenario:  sc,
		Title:     sc.Title(),
		StartedAt: time.Now(),
	}
	logger = logger.With(zap.String("scenario", sc.ID))

	limit := r.cfg.Timeouts.Scenario
	sctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	var session browser.Session
	defer func() {
		if p := recover(); p != nil {
			logger.Error("scenario panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			res.Status = StatusError
			res.Kind = KindPanic
			res.Target = ""
			res.Missing = nil
			res.Message = fmt.Sprintf("scenario panicked: %v", p)
		}
		if session != nil {
			if err := session.Close(); err != nil {
				logger.Debug("failed to close session", zap.Error(err))
			}
		}
		res.Duration = time.Since(res.StartedAt)
		r.log(logger, res)
	}()

	if err := ctx.Err(); err != nil {
		outcome(&res, err, nil, limit)
		return res
	}

	session, err := r.engine.NewSession(sctx)
	if err != nil {
		outcome(&res, fmt.Errorf("failed to open browser session: %w", err), sctx.Err(), limit)
		return res
	}

	err = r.verify(sctx, session, sc)
	outcome(&res, err, sctx.Err(), limit)
	if res.Status != StatusPassed && r.cfg.Report.Screenshots {
		res.Screenshot = r.screenshot(session, sc, logger)
	}
	return res
}

// verify runs the setup and the check of one scenario on a fresh session.
func (r *Runner) verify(ctx context.Context, session browser.Session, sc dataset.Scenario) error {
	auth := board.NewAuthenticator(session, r.cfg)
	if err := auth.Open(ctx); err != nil {
		return err
	}
	if err := auth.SignIn(ctx); err != nil {
		return err
	}
	return board.NewVerifier(session, r.cfg).VerifyScenario(ctx, sc)
}

// screenshot captures the page after a failure. It runs on its own deadline
// since the scenario context may already be expired.
func (r *Runner) screenshot(session browser.Session, sc dataset.Scenario, logger *zap.Logger) string {
	if r.cfg.Report.Dir == "" {
		return ""
	}
	dir := filepath.Join(r.cfg.Report.Dir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("failed to create screenshot directory", zap.String("dir", dir), zap.Error(err))
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", fileSafe(sc.ID), time.Now().Unix()))

	ctx, cancel := context.WithTimeout(context.Background(), screenshotTimeout)
	defer cancel()
	if err := session.Screenshot(ctx, path); err != nil {
		if errors.Is(err, browser.ErrUnsupported) {
			logger.Debug("engine cannot take screenshots")
		} else {
			logger.Warn("failed to capture screenshot", zap.Error(err))
		}
		return ""
	}
	return path
}

func (r *Runner) log(logger *zap.Logger, res Result) {
	fields := []zap.Field{
		zap.String("status", string(res.Status)),
		zap.Duration("duration", res.Duration),
	}
	switch res.Status {
	case StatusPassed:
		logger.Info("scenario passed", fields...)
	case StatusFailed:
		logger.Warn("scenario failed", append(fields,
			zap.String("kind", string(res.Kind)),
			zap.String("message", res.Message))...)
	default:
		logger.Error("scenario errored", append(fields,
			zap.String("kind", string(res.Kind)),
			zap.String("message", res.Message))...)
	}
}

// fileSafe replaces characters that are awkward in file names.
func fileSafe(id string) string {
	out := []rune(id)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
