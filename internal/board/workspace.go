package board

import (
	"context"
	"fmt"
	"time"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

// Navigator switches between applications using the sidebar.
type Navigator struct {
	session browser.Session
	timeout time.Duration
}

// NewNavigator binds a navigator to one session. timeout bounds each
// visibility assertion.
func NewNavigator(session browser.Session, timeout time.Duration) *Navigator {
	return &Navigator{session: session, timeout: timeout}
}

// Open clicks the sidebar entry titled app and waits for the header to show
// it. The sidebar entry must be unique.
func (n *Navigator) Open(ctx context.Context, app string) error {
	entry := locator.SidebarEntry(app)
	notFound := &Error{
		Kind:    KindNotFound,
		Target:  TargetApplication,
		Name:    app,
		Message: fmt.Sprintf("application %q not found in navigation", app),
	}

	if err := n.session.WaitVisible(ctx, entry, n.timeout); err != nil {
		return classify(err, notFound, "looking for the application")
	}
	count, err := n.session.Count(ctx, entry)
	if err != nil {
		return classify(err, notFound, "counting navigation entries")
	}
	if count > 1 {
		return &Error{
			Kind:    KindAmbiguous,
			Target:  TargetApplication,
			Name:    app,
			Message: fmt.Sprintf("application %q matches %d navigation entries; expected exactly one", app, count),
		}
	}
	if err := n.session.Click(ctx, entry); err != nil {
		return classify(err, notFound, "opening the application")
	}

	header := &Error{
		Kind:    KindMismatch,
		Target:  TargetHeader,
		Name:    app,
		Message: fmt.Sprintf("header does not show application %q", app),
	}
	if err := n.session.WaitVisible(ctx, locator.Header(app), n.timeout); err != nil {
		return classify(err, header, "waiting for the header")
	}
	return nil
}
