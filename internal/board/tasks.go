package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

// Verifier checks that a task card with its tags sits in a column.
type Verifier struct {
	session   browser.Session
	navigator *Navigator
	layout    locator.Layout
	timeout   time.Duration
}

// NewVerifier binds a verifier to one session.
func NewVerifier(session browser.Session, cfg *config.Config) *Verifier {
	return &Verifier{
		session:   session,
		navigator: NewNavigator(session, cfg.Timeouts.Assertion),
		layout:    cfg.Locators(),
		timeout:   cfg.Timeouts.Assertion,
	}
}

// VerifyScenario runs Verify with the fields of s.
func (v *Verifier) VerifyScenario(ctx context.Context, s dataset.Scenario) error {
	return v.Verify(ctx, s.App, s.Column, s.Task, s.Tags)
}

// Verify opens app, finds the single column whose heading contains column,
// finds the first card in it titled exactly task and checks every tag is
// visible on that card. All tags are checked; the returned error lists every
// missing one.
func (v *Verifier) Verify(ctx context.Context, app, column, task string, tags []string) error {
	if err := v.navigator.Open(ctx, app); err != nil {
		return err
	}

	col, err := v.findColumn(ctx, app, column)
	if err != nil {
		return err
	}

	card := locator.Card(col, task)
	if err := v.checkTitle(ctx, column, task, card); err != nil {
		return err
	}

	return v.checkTags(ctx, task, card, tags)
}

// findColumn returns a query for the one visible column whose heading
// contains column. Hidden copies of the column, such as a collapsed mobile
// layout, are skipped so that card lookups stay inside the visible one.
func (v *Verifier) findColumn(ctx context.Context, app, column string) (locator.Selector, error) {
	col := v.layout.Column(column)
	notFound := &Error{
		Kind:    KindNotFound,
		Target:  TargetColumn,
		Name:    column,
		Message: fmt.Sprintf("column %q not found in application %q", column, app),
	}
	if err := v.session.WaitVisible(ctx, col, v.timeout); err != nil {
		return "", classify(err, notFound, "looking for the column")
	}
	count, err := v.session.Count(ctx, col)
	if err != nil {
		return "", classify(err, notFound, "counting columns")
	}
	switch {
	case count == 0:
		return "", notFound
	case count > 1:
		return "", &Error{
			Kind:    KindAmbiguous,
			Target:  TargetColumn,
			Name:    column,
			Message: fmt.Sprintf("column %q matches %d columns in application %q; expected exactly one", column, count, app),
		}
	}

	total, err := v.session.Matches(ctx, col)
	if err != nil {
		return "", classify(err, notFound, "counting columns")
	}
	if total <= 1 {
		return col, nil
	}
	for i := 1; i <= total; i++ {
		nth := locator.Nth(col, i)
		n, err := v.session.Count(ctx, nth)
		if err != nil {
			return "", classify(err, notFound, "locating the visible column")
		}
		if n > 0 {
			return nth, nil
		}
	}
	// The visible column went away between the two queries.
	return "", notFound
}

func (v *Verifier) checkTitle(ctx context.Context, column, task string, card locator.Selector) error {
	notFound := &Error{
		Kind:    KindNotFound,
		Target:  TargetTask,
		Name:    task,
		Message: fmt.Sprintf("task %q not found in column %q", task, column),
	}
	heading := locator.CardHeading(card)
	if err := v.session.WaitVisible(ctx, heading, v.timeout); err != nil {
		return classify(err, notFound, "looking for the task")
	}

	text, err := v.session.Text(ctx, heading)
	if err != nil {
		return classify(err, notFound, "reading the task title")
	}
	if text != locator.Normalize(task) {
		return &Error{
			Kind:    KindMismatch,
			Target:  TargetTask,
			Name:    task,
			Message: fmt.Sprintf("task heading in column %q shows %q, expected %q", column, text, task),
		}
	}
	return nil
}

func (v *Verifier) checkTags(ctx context.Context, task string, card locator.Selector, tags []string) error {
	var missing []string
	for _, tag := range tags {
		err := v.session.WaitVisible(ctx, locator.Tag(card, tag), v.timeout)
		if err == nil {
			continue
		}
		if !absent(err) {
			return classify(err, &Error{Target: TargetTag, Name: tag}, fmt.Sprintf("checking tag %q", tag))
		}
		missing = append(missing, tag)
	}
	if len(missing) == 0 {
		return nil
	}

	quoted := make([]string, len(missing))
	for i, tag := range missing {
		quoted[i] = fmt.Sprintf("%q", tag)
	}
	noun := "tag"
	if len(missing) > 1 {
		noun = "tags"
	}
	return &Error{
		Kind:    KindMismatch,
		Target:  TargetTag,
		Name:    task,
		Missing: missing,
		Message: fmt.Sprintf("task %q is missing %s %s", task, noun, strings.Join(quoted, ", ")),
	}
}
