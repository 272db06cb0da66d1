package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotrs-io/boardcheck/internal/browser"
)

// Kind classifies why a verification step failed.
type Kind string

const (
	// KindNavigation means a page could not be loaded at all.
	KindNavigation Kind = "navigation"
	// KindAuthentication means sign in did not reach the signed-in view.
	KindAuthentication Kind = "authentication"
	// KindNotFound means a required element never appeared.
	KindNotFound Kind = "element_not_found"
	// KindMismatch means an element was found but did not show the expected fact.
	KindMismatch Kind = "assertion_mismatch"
	// KindAmbiguous means a query that must be unique matched several elements.
	KindAmbiguous Kind = "ambiguous_match"
	// KindDriver means the browser driver failed for a reason unrelated to the page.
	KindDriver Kind = "driver"
)

// Infrastructure reports whether the kind points at the environment rather
// than at the application under test.
func (k Kind) Infrastructure() bool {
	return k == KindNavigation || k == KindDriver
}

// Target names what a failed step was looking for.
type Target string

const (
	TargetPage        Target = "page"
	TargetLoginForm   Target = "login form"
	TargetLandmark    Target = "landmark"
	TargetApplication Target = "application"
	TargetHeader      Target = "header"
	TargetColumn      Target = "column"
	TargetTask        Target = "task"
	TargetTag         Target = "tag"
)

// Error is a classified verification failure.
type Error struct {
	Kind   Kind
	Target Target
	// Name is the expected value, e.g. the column name or task title.
	Name string
	// Missing lists every absent tag for tag failures.
	Missing []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%s: %s", e.Target, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors on Kind and Target. Empty sentinel fields match
// anything.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Target != "" && t.Target != e.Target {
		return false
	}
	return true
}

var (
	ErrNavigation      = &Error{Kind: KindNavigation}
	ErrLoginForm       = &Error{Kind: KindNotFound, Target: TargetLoginForm}
	ErrLandmarkMissing = &Error{Kind: KindAuthentication, Target: TargetLandmark}
	ErrAppNotFound     = &Error{Kind: KindNotFound, Target: TargetApplication}
	ErrHeaderMismatch  = &Error{Kind: KindMismatch, Target: TargetHeader}
	ErrColumnNotFound  = &Error{Kind: KindNotFound, Target: TargetColumn}
	ErrTaskNotFound    = &Error{Kind: KindNotFound, Target: TargetTask}
	ErrTaskMismatch    = &Error{Kind: KindMismatch, Target: TargetTask}
	ErrTagMissing      = &Error{Kind: KindMismatch, Target: TargetTag}
	ErrAmbiguous       = &Error{Kind: KindAmbiguous}
	ErrDriver          = &Error{Kind: KindDriver}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// absent reports whether a driver error means the element was not there.
func absent(err error) bool {
	return errors.Is(err, browser.ErrTimeout) || errors.Is(err, browser.ErrNotFound)
}

// classify turns a driver error into miss when the element was absent.
// Context errors pass through untouched so the caller can tell a scenario
// deadline from a page problem. Anything else is a driver failure.
func classify(err error, miss *Error, doing string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case absent(err):
		return miss
	default:
		return &Error{Kind: KindDriver, Target: miss.Target, Name: miss.Name, Message: "browser driver failed while " + doing, Err: err}
	}
}
