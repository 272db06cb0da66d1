package board

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

// fakeSession answers queries from fixed tables. Matches falls back to the
// visible count when all has no entry.
type fakeSession struct {
	visible map[locator.Selector]int
	all     map[locator.Selector]int
	texts   map[locator.Selector]string
	failOn  locator.Selector
	err     error
	clicked []locator.Selector
}

func newFake() *fakeSession {
	return &fakeSession{
		visible: make(map[locator.Selector]int),
		all:     make(map[locator.Selector]int),
		texts:   make(map[locator.Selector]string),
	}
}

func (f *fakeSession) fail(sel locator.Selector) error {
	if f.err != nil && (f.failOn == "" || f.failOn == sel) {
		return f.err
	}
	return nil
}

func (f *fakeSession) Navigate(context.Context, string) error { return f.fail("") }

func (f *fakeSession) WaitVisible(_ context.Context, sel locator.Selector, timeout time.Duration) error {
	if err := f.fail(sel); err != nil {
		return err
	}
	if f.visible[sel] == 0 {
		return fmt.Errorf("%w after %s: %s", browser.ErrTimeout, timeout, sel)
	}
	return nil
}

func (f *fakeSession) Count(_ context.Context, sel locator.Selector) (int, error) {
	return f.visible[sel], f.fail(sel)
}

func (f *fakeSession) Matches(_ context.Context, sel locator.Selector) (int, error) {
	if n, ok := f.all[sel]; ok {
		return n, f.fail(sel)
	}
	return f.visible[sel], f.fail(sel)
}

func (f *fakeSession) Fill(_ context.Context, sel locator.Selector, _ string) error {
	return f.fail(sel)
}

func (f *fakeSession) Click(_ context.Context, sel locator.Selector) error {
	f.clicked = append(f.clicked, sel)
	return f.fail(sel)
}

func (f *fakeSession) Text(_ context.Context, sel locator.Selector) (string, error) {
	if err := f.fail(sel); err != nil {
		return "", err
	}
	text, ok := f.texts[sel]
	if !ok {
		return "", browser.ErrNotFound
	}
	return text, nil
}

func (f *fakeSession) Screenshot(context.Context, string) error { return browser.ErrUnsupported }
func (f *fakeSession) Close() error                             { return nil }

var fakeConfig = &config.Config{
	Timeouts: config.TimeoutConfig{Assertion: time.Millisecond},
}

// board sets up a fake page holding one card in one column.
func (f *fakeSession) board(app, column, title string, tags ...string) locator.Selector {
	f.visible[locator.SidebarEntry(app)] = 1
	f.visible[locator.Header(app)] = 1
	col := locator.DefaultLayout().Column(column)
	f.visible[col] = 1
	card := locator.Card(col, title)
	f.visible[locator.CardHeading(card)] = 1
	f.texts[locator.CardHeading(card)] = title
	for _, tag := range tags {
		f.visible[locator.Tag(card, tag)] = 1
	}
	return card
}

func TestNavigatorRejectsAmbiguousEntry(t *testing.T) {
	f := newFake()
	f.visible[locator.SidebarEntry("Planner")] = 2

	err := NewNavigator(f, time.Millisecond).Open(context.Background(), "Planner")
	require.ErrorIs(t, err, ErrAmbiguous)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, TargetApplication, be.Target)
	assert.Empty(t, f.clicked, "an ambiguous entry must not be clicked")
}

func TestNavigatorHeaderMismatch(t *testing.T) {
	f := newFake()
	f.visible[locator.SidebarEntry("Planner")] = 1

	err := NewNavigator(f, time.Millisecond).Open(context.Background(), "Planner")
	require.ErrorIs(t, err, ErrHeaderMismatch)
	assert.Equal(t, []locator.Selector{locator.SidebarEntry("Planner")}, f.clicked)
}

func TestVerifierTitleMismatch(t *testing.T) {
	f := newFake()
	card := f.board("Planner", "To Do", "Write docs")
	f.texts[locator.CardHeading(card)] = "Write docs (draft)"

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "To Do", "Write docs", nil)
	require.ErrorIs(t, err, ErrTaskMismatch)
	assert.Contains(t, err.Error(), `shows "Write docs (draft)", expected "Write docs"`)
}

func TestVerifierAccumulatesTagsInOrder(t *testing.T) {
	f := newFake()
	f.board("Planner", "To Do", "Write docs", "b")

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "To Do", "Write docs",
		[]string{"a", "b", "c"})
	require.ErrorIs(t, err, ErrTagMissing)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, []string{"a", "c"}, be.Missing)
	assert.Equal(t, "Write docs", be.Name)
}

func TestVerifierPasses(t *testing.T) {
	f := newFake()
	f.board("Planner", "In Progress", "Design review", "design", "urgent")

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "In Progress", "Design review",
		[]string{"urgent", "design"})
	require.NoError(t, err)
}

func TestDriverFailuresAreClassified(t *testing.T) {
	crash := errors.New("target closed")

	f := newFake()
	card := f.board("Planner", "To Do", "Write docs", "docs")
	f.failOn = locator.Tag(card, "docs")
	f.err = crash

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "To Do", "Write docs", []string{"docs"})
	require.ErrorIs(t, err, ErrDriver)
	require.ErrorIs(t, err, crash)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.True(t, kind.Infrastructure())
}

func TestContextErrorsPassThrough(t *testing.T) {
	f := newFake()
	f.board("Planner", "To Do", "Write docs")
	f.failOn = locator.Header("Planner")
	f.err = fmt.Errorf("waiting: %w", context.DeadlineExceeded)

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "To Do", "Write docs", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := KindOf(err)
	assert.False(t, ok)
}

func TestLoginFormMissing(t *testing.T) {
	f := newFake()
	f.failOn = locator.Username()
	f.err = fmt.Errorf("%w: %s", browser.ErrNotFound, locator.Username())

	cfg := &config.Config{BaseURL: "http://board.test", Timeouts: config.TimeoutConfig{Assertion: time.Millisecond}}
	err := NewAuthenticator(f, cfg).SignIn(context.Background())
	require.ErrorIs(t, err, ErrLoginForm)
	assert.Equal(t, "login form not found at http://board.test", err.Error())
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("scenario T1: %w", &Error{Kind: KindMismatch, Target: TargetTag, Message: "missing"})

	assert.ErrorIs(t, err, ErrTagMissing)
	assert.NotErrorIs(t, err, ErrColumnNotFound)
	assert.NotErrorIs(t, err, ErrAmbiguous)
	assert.NotErrorIs(t, err, errors.New("missing"))

	assert.Equal(t, "column: element_not_found", ErrColumnNotFound.Error())
}

func TestVerifierSkipsHiddenColumnCopies(t *testing.T) {
	f := newFake()
	f.visible[locator.SidebarEntry("Planner")] = 1
	f.visible[locator.Header("Planner")] = 1
	col := locator.DefaultLayout().Column("In Progress")
	f.visible[col] = 1
	f.all[col] = 2

	shown := locator.Nth(col, 2)
	f.visible[shown] = 1
	card := locator.Card(shown, "Design review")
	f.visible[locator.CardHeading(card)] = 1
	f.texts[locator.CardHeading(card)] = "Design review"
	f.visible[locator.Tag(card, "urgent")] = 1

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "In Progress", "Design review", []string{"urgent"})
	require.NoError(t, err)

	delete(f.visible, shown)
	err = NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner", "In Progress", "Design review", nil)
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestVerifierNormalizesExpectedValues(t *testing.T) {
	f := newFake()
	f.board("Planner", "To Do", "Write docs", "docs")

	err := NewVerifier(f, fakeConfig).Verify(context.Background(), "Planner ", " To Do", "Write  docs ", []string{"docs "})
	require.NoError(t, err)
}

func TestUnsupportedClickIsADriverFailure(t *testing.T) {
	f := newFake()
	f.visible[locator.SidebarEntry("Planner")] = 1
	f.failOn = locator.SidebarEntry("Planner")
	f.err = fmt.Errorf("%w: submit control outside a form", browser.ErrUnsupported)

	// WaitVisible shares failOn, so let it through and fail only the click.
	err := NewNavigator(clickOnly{f}, time.Millisecond).Open(context.Background(), "Planner")
	require.ErrorIs(t, err, ErrDriver)
	require.ErrorIs(t, err, browser.ErrUnsupported)
	assert.NotErrorIs(t, err, ErrHeaderMismatch)
}

// clickOnly passes every call except Click through without the failure.
type clickOnly struct{ *fakeSession }

func (c clickOnly) WaitVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) error {
	if c.visible[sel] > 0 {
		return nil
	}
	return fmt.Errorf("%w after %s: %s", browser.ErrTimeout, timeout, sel)
}

func (c clickOnly) Count(_ context.Context, sel locator.Selector) (int, error) {
	return c.visible[sel], nil
}
