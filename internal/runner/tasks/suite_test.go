package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

func TestSuiteTask(t *testing.T) {
	summary := &runner.Summary{RunID: "r1", Passed: 2}
	task := NewSuiteTask("@every 5m", time.Minute, func(context.Context) (*runner.Summary, error) {
		return summary, nil
	}, zap.NewNop())

	assert.Equal(t, "verification-suite", task.Name())
	assert.Equal(t, "@every 5m", task.Schedule())
	assert.Equal(t, time.Minute, task.Timeout())
	require.NoError(t, task.Run(context.Background()))

	summary.Failed = 1
	err := task.Run(context.Background())
	require.ErrorIs(t, err, ErrSuiteFailed)
	assert.Contains(t, err.Error(), "1 failed, 0 errored")
}

func TestSuiteTaskPropagatesErrors(t *testing.T) {
	boom := errors.New("config missing")
	task := NewSuiteTask("@hourly", time.Minute, func(context.Context) (*runner.Summary, error) {
		return nil, boom
	}, zap.NewNop())
	require.ErrorIs(t, task.Run(context.Background()), boom)
}

func TestSuiteTaskOnScheduler(t *testing.T) {
	ran := make(chan struct{}, 1)
	registry := runner.NewTaskRegistry()
	require.NoError(t, registry.Register(NewSuiteTask("@hourly", time.Minute, func(context.Context) (*runner.Summary, error) {
		ran <- struct{}{}
		return &runner.Summary{}, nil
	}, zap.NewNop())))

	s := runner.NewScheduler(registry, zap.NewNop())
	require.NoError(t, s.RunNow(context.Background(), "verification-suite"))
	assert.Len(t, ran, 1)
}
