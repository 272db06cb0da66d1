package helpers

import (
	"fmt"

	"github.com/gotrs-io/boardcheck/internal/board"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

// logoutButton is the sign-out control of the workspace sidebar.
const logoutButton locator.Selector = `//form[@action='/logout']//button`

// AuthHelper provides authentication utilities for tests.
type AuthHelper struct {
	browser *BrowserHelper
}

// NewAuthHelper creates a new authentication helper.
func NewAuthHelper(browser *BrowserHelper) *AuthHelper {
	return &AuthHelper{browser: browser}
}

// Login opens the board and signs in with the configured account.
func (a *AuthHelper) Login() error {
	auth := board.NewAuthenticator(a.browser.Session, a.browser.Run)
	if err := auth.Open(a.browser.Context()); err != nil {
		return err
	}
	return auth.SignIn(a.browser.Context())
}

// LoginAs signs in with another account.
func (a *AuthHelper) LoginAs(username, password string) error {
	run := *a.browser.Run
	run.Credentials.Username = username
	run.Credentials.Password = password

	auth := board.NewAuthenticator(a.browser.Session, &run)
	if err := auth.Open(a.browser.Context()); err != nil {
		return err
	}
	return auth.SignIn(a.browser.Context())
}

// Logout signs out through the sidebar.
func (a *AuthHelper) Logout() error {
	if err := a.browser.Session.Click(a.browser.Context(), logoutButton); err != nil {
		return fmt.Errorf("failed to click logout: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether the signed-in landmark is visible.
func (a *AuthHelper) IsLoggedIn() bool {
	n, err := a.browser.Session.Count(a.browser.Context(), a.browser.Run.Locators().LandmarkElement())
	return err == nil && n > 0
}
