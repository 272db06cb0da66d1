package runner

import (
	"context"
	"fmt"
	"time"
)

// Task is a unit of work the Scheduler runs on a cron schedule.
type Task interface {
	// Name returns the unique name of the task
	Name() string

	// Schedule returns the cron expression, with optional seconds field
	Schedule() string

	// Run executes the task
	Run(ctx context.Context) error

	// Timeout returns the maximum time one execution may take
	Timeout() time.Duration
}

// TaskRegistry holds tasks in registration order.
type TaskRegistry struct {
	order []string
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]Task),
	}
}

// Register adds a task. Names must be unique.
func (r *TaskRegistry) Register(task Task) error {
	if _, exists := r.tasks[task.Name()]; exists {
		return fmt.Errorf("task %s already registered", task.Name())
	}
	r.tasks[task.Name()] = task
	r.order = append(r.order, task.Name())
	return nil
}

// Get returns a task by name
func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, exists := r.tasks[name]
	return task, exists
}

// All returns the tasks in registration order.
func (r *TaskRegistry) All() []Task {
	out := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}
	return out
}
