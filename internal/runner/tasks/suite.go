// Package tasks holds the scheduled tasks boardcheck registers with the
// runner's scheduler.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

// ErrSuiteFailed is returned when a run completes with failing scenarios.
var ErrSuiteFailed = errors.New("suite has failing scenarios")

// SuiteFunc performs one complete verification run.
type SuiteFunc func(ctx context.Context) (*runner.Summary, error)

// SuiteTask reruns the verification suite on a schedule.
type SuiteTask struct {
	schedule string
	timeout  time.Duration
	suite    SuiteFunc
	logger   *zap.Logger
}

// NewSuiteTask creates the task. timeout bounds a whole run.
func NewSuiteTask(schedule string, timeout time.Duration, suite SuiteFunc, logger *zap.Logger) runner.Task {
	return &SuiteTask{
		schedule: schedule,
		timeout:  timeout,
		suite:    suite,
		logger:   logger,
	}
}

func (t *SuiteTask) Name() string { return "verification-suite" }

func (t *SuiteTask) Schedule() string { return t.schedule }

func (t *SuiteTask) Timeout() time.Duration { return t.timeout }

func (t *SuiteTask) Run(ctx context.Context) error {
	summary, err := t.suite(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("scheduled run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("errored", summary.Errored))
	if !summary.OK() {
		return fmt.Errorf("%w: %d failed, %d errored", ErrSuiteFailed, summary.Failed, summary.Errored)
	}
	return nil
}
