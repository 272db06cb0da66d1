package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotrs-io/boardcheck/internal/board"
	"github.com/gotrs-io/boardcheck/internal/dataset"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPassed Status = "passed"
	// StatusFailed means the application did not show what the dataset expects.
	StatusFailed Status = "failed"
	// StatusError means the scenario could not be evaluated.
	StatusError Status = "error"
)

// Kinds added by the runner on top of the board kinds.
const (
	KindTimeout  board.Kind = "timeout"
	KindCanceled board.Kind = "canceled"
	KindPanic    board.Kind = "panic"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario   dataset.Scenario
	Title      string
	Status     Status
	Kind       board.Kind
	Target     board.Target
	Message    string
	Missing    []string
	StartedAt  time.Time
	Duration   time.Duration
	Screenshot string
}

// ID returns the scenario id.
func (r Result) ID() string { return r.Scenario.ID }

// Summary aggregates the results of one run in dataset order.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   []Result
	Passed    int
	Failed    int
	Errored   int
}

// OK reports whether every scenario passed.
func (s *Summary) OK() bool { return s.Failed == 0 && s.Errored == 0 }

// Total is the number of scenarios that ran.
func (s *Summary) Total() int { return len(s.Results) }

func (s *Summary) count() {
	s.Passed, s.Failed, s.Errored = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			s.Errored++
		}
	}
}

// outcome fills the status fields of res from the error a scenario returned.
// expired is the scenario context's error, which tells a deadline apart from
// a driver that gave up on its own.
func outcome(res *Result, err, expired error, limit time.Duration) {
	if err == nil {
		res.Status = StatusPassed
		return
	}

	var be *board.Error
	switch {
	case errors.Is(expired, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		res.Status = StatusError
		res.Kind = KindTimeout
		res.Message = fmt.Sprintf("scenario did not finish within %s", limit)
		if errors.As(err, &be) {
			res.Target = be.Target
			res.Message += ": " + be.Error()
		}
	case errors.Is(err, context.Canceled):
		res.Status = StatusError
		res.Kind = KindCanceled
		res.Message = "run cancelled before the scenario finished"
	case errors.As(err, &be):
		res.Status = StatusFailed
		if be.Kind.Infrastructure() {
			res.Status = StatusError
		}
		res.Kind = be.Kind
		res.Target = be.Target
		res.Missing = be.Missing
		res.Message = be.Error()
	default:
		res.Status = StatusError
		res.Kind = board.KindDriver
		res.Message = err.Error()
	}
}
