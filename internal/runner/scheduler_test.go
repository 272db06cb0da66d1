package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTask struct {
	name     string
	schedule string
	runs     chan struct{}
	err      error
}

func (c *countingTask) Name() string           { return c.name }
func (c *countingTask) Schedule() string       { return c.schedule }
func (c *countingTask) Timeout() time.Duration { return time.Second }

func (c *countingTask) Run(ctx context.Context) error {
	select {
	case c.runs <- struct{}{}:
	default:
	}
	return c.err
}

func TestTaskRegistry(t *testing.T) {
	r := NewTaskRegistry()
	require.NoError(t, r.Register(&countingTask{name: "b"}))
	require.NoError(t, r.Register(&countingTask{name: "a"}))
	require.Error(t, r.Register(&countingTask{name: "a"}))

	var names []string
	for _, task := range r.All() {
		names = append(names, task.Name())
	}
	assert.Equal(t, []string{"b", "a"}, names)

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "0 */5 * * * *", "@every 10m", "@hourly"} {
		assert.NoError(t, ValidateSchedule(spec), spec)
	}
	for _, spec := range []string{"", "every minute", "61 * * * *"} {
		assert.Error(t, ValidateSchedule(spec), spec)
	}
}

func TestSchedulerRunNow(t *testing.T) {
	failure := errors.New("suite failed")
	task := &countingTask{name: "suite", schedule: "@hourly", runs: make(chan struct{}, 1), err: failure}

	r := NewTaskRegistry()
	require.NoError(t, r.Register(task))
	s := NewScheduler(r, zap.NewNop())

	require.ErrorIs(t, s.RunNow(context.Background(), "suite"), failure)
	assert.Len(t, task.runs, 1)
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestSchedulerStart(t *testing.T) {
	task := &countingTask{name: "suite", schedule: "* * * * * *", runs: make(chan struct{}, 1)}
	r := NewTaskRegistry()
	require.NoError(t, r.Register(task))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewScheduler(r, zap.NewNop()).Start(ctx) }()

	select {
	case <-task.runs:
	case <-time.After(5 * time.Second):
		t.Fatal("task never ran")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	r := NewTaskRegistry()
	require.NoError(t, r.Register(&countingTask{name: "bad", schedule: "nope"}))
	err := NewScheduler(r, zap.NewNop()).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule task bad")
}

func TestWatcherRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "tasks.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("[]"), 0o600))

	w, err := NewWatcher([]string{watched}, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	runs := make(chan struct{}, 10)
	fn := func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		runs <- struct{}{}
		return errors.New("ignored")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, fn) }()

	wait := func() {
		t.Helper()
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not run")
		}
	}
	wait()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(watched, []byte(`[{"id":"T1"}]`), 0o600))
	wait()

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}

func TestNewWatcherNeedsFiles(t *testing.T) {
	_, err := NewWatcher([]string{""}, 0, zap.NewNop())
	assert.Error(t, err)
}
