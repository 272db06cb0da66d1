package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduleParser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as @every 10m.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether spec is a usable cron expression.
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler runs registered tasks on their cron schedules. An execution that
// is still running when the next one is due is skipped.
type Scheduler struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewScheduler(registry *TaskRegistry, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		registry: registry,
		logger:   logger,
	}
}

// Start schedules every task and blocks until ctx is done, then waits for
// running executions to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, task := range s.registry.All() {
		s.logger.Info("registering task", zap.String("task", task.Name()), zap.String("schedule", task.Schedule()))

		_, err := s.cron.AddFunc(task.Schedule(), func() {
			s.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.registry.All())))

	<-ctx.Done()
	s.Stop()
	return nil
}

// RunNow executes a task immediately, outside of its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	task, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %s", name)
	}
	return s.executeTask(ctx, task)
}

func (s *Scheduler) executeTask(ctx context.Context, task Task) error {
	s.wg.Add(1)
	defer s.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	s.logger.Info("executing task", zap.String("task", task.Name()))

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("task failed", zap.String("task", task.Name()), zap.Duration("duration", duration), zap.Error(err))
	} else {
		s.logger.Info("task completed", zap.String("task", task.Name()), zap.Duration("duration", duration))
	}
	return err
}

// Stop stops the cron loop and waits for running executions.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
