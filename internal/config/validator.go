package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type validator struct {
	config *Config
	errors []string
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	v := &validator{config: c}

	v.validateBaseURL()
	v.validateCredentials()
	v.validateBrowser()
	v.validateTimeouts()
	v.validateRunner()
	v.validateReport()

	if len(v.errors) > 0 {
		return fmt.Errorf("%w:\n%s", ErrInvalid, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *validator) validateBaseURL() {
	if v.config.BaseURL == "" {
		v.addError("baseUrl is not set")
		return
	}
	u, err := url.Parse(v.config.BaseURL)
	if err != nil {
		v.addError(fmt.Sprintf("baseUrl %q is not a valid URL: %v", v.config.BaseURL, err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(fmt.Sprintf("baseUrl %q must use http or https", v.config.BaseURL))
	}
	if u.Host == "" {
		v.addError(fmt.Sprintf("baseUrl %q has no host", v.config.BaseURL))
	}
}

func (v *validator) validateCredentials() {
	if v.config.Credentials.Username == "" {
		v.addError("credentials.username is not set")
	}
	if v.config.Credentials.Password == "" {
		v.addError("credentials.password is not set")
	}
}

func (v *validator) validateBrowser() {
	if !slices.Contains(Engines, v.config.Browser.Engine) {
		v.addError(fmt.Sprintf("browser.engine %q is not one of %s", v.config.Browser.Engine, strings.Join(Engines, ", ")))
	}
	if v.config.Browser.SlowMo < 0 {
		v.addError("browser.slowMo must not be negative")
	}
}

func (v *validator) validateTimeouts() {
	t := v.config.Timeouts
	if t.Action <= 0 {
		v.addError("timeouts.action must be positive")
	}
	if t.Assertion <= 0 {
		v.addError("timeouts.assertion must be positive")
	}
	if t.Scenario <= 0 {
		v.addError("timeouts.scenario must be positive")
	}
}

func (v *validator) validateRunner() {
	if v.config.Runner.Parallel < 1 {
		v.addError("runner.parallel must be at least 1")
	}
}

func (v *validator) validateReport() {
	for _, f := range v.config.Report.Formats {
		if !slices.Contains(Formats, strings.ToLower(strings.TrimSpace(f))) {
			v.addError(fmt.Sprintf("report.formats: unknown format %q", f))
		}
	}
	if v.config.Report.Dir != "" {
		return
	}
	for _, f := range v.config.Report.Formats {
		if !strings.EqualFold(strings.TrimSpace(f), FormatConsole) {
			v.addError("report.dir is required for file reports")
			return
		}
	}
}

func (v *validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
