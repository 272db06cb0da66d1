// Package board verifies task boards through a browser session: it signs in,
// opens a workspace from the sidebar and checks that task cards sit in the
// expected column with the expected tags.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

var errorMessage locator.Selector = `//*[@id='error-message']`

// Authenticator opens the application and signs in with the configured
// credentials.
type Authenticator struct {
	session     browser.Session
	baseURL     string
	credentials config.Credentials
	layout      locator.Layout
	timeout     time.Duration
}

// NewAuthenticator binds an authenticator to one session.
func NewAuthenticator(session browser.Session, cfg *config.Config) *Authenticator {
	return &Authenticator{
		session:     session,
		baseURL:     cfg.BaseURL,
		credentials: cfg.Credentials,
		layout:      cfg.Locators(),
		timeout:     cfg.Timeouts.Assertion,
	}
}

// Open navigates to the base URL.
func (a *Authenticator) Open(ctx context.Context) error {
	err := a.session.Navigate(ctx, a.baseURL)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{
		Kind:    KindNavigation,
		Target:  TargetPage,
		Name:    a.baseURL,
		Message: fmt.Sprintf("could not open %s", a.baseURL),
		Err:     err,
	}
}

// SignIn submits the login form and waits for the signed-in landmark.
func (a *Authenticator) SignIn(ctx context.Context) error {
	form := &Error{
		Kind:    KindNotFound,
		Target:  TargetLoginForm,
		Name:    a.baseURL,
		Message: fmt.Sprintf("login form not found at %s", a.baseURL),
	}

	if err := a.session.Fill(ctx, locator.Username(), a.credentials.Username); err != nil {
		return classify(err, form, "filling the username")
	}
	if err := a.session.Fill(ctx, locator.Password(), a.credentials.Password); err != nil {
		return classify(err, form, "filling the password")
	}
	if err := a.session.Click(ctx, locator.Submit()); err != nil {
		return classify(err, form, "submitting the login form")
	}

	landmark := a.layout.LandmarkText()
	err := a.session.WaitVisible(ctx, a.layout.LandmarkElement(), a.timeout)
	if err == nil {
		return nil
	}

	missing := &Error{
		Kind:    KindAuthentication,
		Target:  TargetLandmark,
		Name:    landmark,
		Message: fmt.Sprintf("sign in as %q did not reach %q", a.credentials.Username, landmark),
	}
	if absent(err) {
		if reason := a.loginError(ctx); reason != "" {
			missing.Message += fmt.Sprintf(" (page says %q)", reason)
		}
	}
	return classify(err, missing, "waiting for the signed-in view")
}

// loginError returns the login page's error message, if one is shown.
func (a *Authenticator) loginError(ctx context.Context) string {
	if n, err := a.session.Count(ctx, errorMessage); err != nil || n == 0 {
		return ""
	}
	text, err := a.session.Text(ctx, errorMessage)
	if err != nil {
		return ""
	}
	return text
}
