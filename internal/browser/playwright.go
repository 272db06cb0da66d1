package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/locator"
)

// PlaywrightEngine runs one Chromium instance through playwright-go and gives
// each session its own BrowserContext.
type PlaywrightEngine struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	logger  *zap.Logger
}

// NewPlaywrightEngine installs the driver when asked to, starts Playwright and
// launches Chromium. Set PLAYWRIGHT_PREINSTALLED=1 to skip the install step.
func NewPlaywrightEngine(opts Options, logger *zap.Logger) (*PlaywrightEngine, error) {
	if opts.Install && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		// The driver may be missing or mismatched; install it and retry once.
		logger.Warn("playwright start failed, reinstalling driver", zap.Error(err))
		_ = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	logger.Debug("playwright browser launched", zap.String("version", browser.Version()))
	return &PlaywrightEngine{pw: pw, browser: browser, opts: opts, logger: logger}, nil
}

// NewSession opens a fresh BrowserContext with its own cookie store.
func (e *PlaywrightEngine) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := playwright.BrowserNewContextOptions{}
	if e.opts.ViewportWidth > 0 && e.opts.ViewportHeight > 0 {
		options.Viewport = &playwright.Size{
			Width:  e.opts.ViewportWidth,
			Height: e.opts.ViewportHeight,
		}
	}
	if e.opts.VideoDir != "" {
		options.RecordVideo = &playwright.RecordVideo{Dir: e.opts.VideoDir}
	}

	bctx, err := e.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	page.SetDefaultTimeout(float64(e.opts.ActionTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(e.opts.ActionTimeout.Milliseconds()))

	return &playwrightSession{bctx: bctx, page: page, timeout: e.opts.ActionTimeout}, nil
}

// Close shuts down the browser and the Playwright driver.
func (e *PlaywrightEngine) Close() error {
	var errs []error
	if e.browser != nil {
		errs = append(errs, e.browser.Close())
	}
	if e.pw != nil {
		errs = append(errs, e.pw.Stop())
	}
	return errors.Join(errs...)
}

type playwrightSession struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
	closed  bool
}

func xpathSelector(sel locator.Selector) string {
	return "xpath=" + sel.String()
}

func visibleSelector(sel locator.Selector) string {
	return xpathSelector(sel) + " >> visible=true"
}

// budget returns the smaller of d and the time left on ctx, in milliseconds.
func budget(ctx context.Context, d time.Duration) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d <= 0 {
		return nil, context.DeadlineExceeded
	}
	return playwright.Float(float64(d.Milliseconds())), nil
}

func (s *playwrightSession) check() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(); err != nil {
		return err
	}
	timeout, err := budget(ctx, s.timeout)
	if err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{Timeout: timeout}); err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) WaitVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	ms, err := budget(ctx, timeout)
	if err != nil {
		return err
	}
	err = s.page.Locator(visibleSelector(sel)).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms,
	})
	if errors.Is(err, playwright.ErrTimeout) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return timeoutError(sel, timeout)
	}
	return err
}

func (s *playwrightSession) Count(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.page.Locator(visibleSelector(sel)).Count()
}

func (s *playwrightSession) Matches(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.page.Locator(xpathSelector(sel)).Count()
}

func (s *playwrightSession) Fill(ctx context.Context, sel locator.Selector, value string) error {
	if err := s.check(); err != nil {
		return err
	}
	timeout, err := budget(ctx, s.timeout)
	if err != nil {
		return err
	}
	err = s.page.Locator(visibleSelector(sel)).First().Fill(value, playwright.LocatorFillOptions{Timeout: timeout})
	if errors.Is(err, playwright.ErrTimeout) {
		return timeoutError(sel, s.timeout)
	}
	return err
}

func (s *playwrightSession) Click(ctx context.Context, sel locator.Selector) error {
	if err := s.check(); err != nil {
		return err
	}
	timeout, err := budget(ctx, s.timeout)
	if err != nil {
		return err
	}
	err = s.page.Locator(visibleSelector(sel)).First().Click(playwright.LocatorClickOptions{Timeout: timeout})
	if errors.Is(err, playwright.ErrTimeout) {
		return timeoutError(sel, s.timeout)
	}
	return err
}

func (s *playwrightSession) Text(ctx context.Context, sel locator.Selector) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	timeout, err := budget(ctx, s.timeout)
	if err != nil {
		return "", err
	}
	// textContent, like the XPath string value, ignores text-transform.
	text, err := s.page.Locator(xpathSelector(sel)).First().TextContent(playwright.LocatorTextContentOptions{Timeout: timeout})
	if errors.Is(err, playwright.ErrTimeout) {
		return "", timeoutError(sel, s.timeout)
	}
	if err != nil {
		return "", err
	}
	return normalizeSpace(text), nil
}

func (s *playwrightSession) Screenshot(ctx context.Context, path string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	return err
}

func (s *playwrightSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.page.Close(), s.bctx.Close())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
