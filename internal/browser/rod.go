package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/locator"
)

const rodPollInterval = 100 * time.Millisecond

// RodEngine drives Chrome over the DevTools protocol with go-rod. Each session
// is an incognito browser context.
type RodEngine struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     Options
	logger   *zap.Logger
}

// NewRodEngine launches Chrome, downloading it when none is installed. Set
// ROD_CONTROL_URL to attach to an already running browser instead.
func NewRodEngine(ctx context.Context, opts Options, logger *zap.Logger) (*RodEngine, error) {
	e := &RodEngine{opts: opts, logger: logger}

	controlURL := os.Getenv("ROD_CONTROL_URL")
	if controlURL == "" {
		e.launcher = launcher.New().
			Headless(opts.Headless).
			Set("no-sandbox").
			Set("disable-gpu")

		u, err := e.launcher.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch Chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if opts.SlowMo > 0 {
		browser = browser.SlowMotion(opts.SlowMo)
	}
	if err := browser.Connect(); err != nil {
		e.cleanup()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}
	e.browser = browser

	logger.Debug("rod browser connected", zap.String("control_url", controlURL))
	return e, nil
}

// NewSession opens an incognito context and a blank page in it.
func (e *RodEngine) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	incognito, err := e.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if e.opts.ViewportWidth > 0 && e.opts.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             e.opts.ViewportWidth,
			Height:            e.opts.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = incognito.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	return &rodSession{browser: incognito, page: page, timeout: e.opts.ActionTimeout}, nil
}

// Close disconnects from Chrome and kills it when this engine launched it.
func (e *RodEngine) Close() error {
	var err error
	if e.browser != nil {
		err = e.browser.Close()
	}
	e.cleanup()
	return err
}

func (e *RodEngine) cleanup() {
	if e.launcher != nil {
		e.launcher.Kill()
		e.launcher.Cleanup()
	}
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	closed  bool
}

func (s *rodSession) check(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	page := s.page.Context(ctx).Timeout(s.timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return nil
}

// visible returns the visible elements matching sel at this instant.
func (s *rodSession) visible(ctx context.Context, sel locator.Selector) ([]*rod.Element, error) {
	elements, err := s.page.Context(ctx).ElementsX(sel.String())
	if err != nil {
		return nil, err
	}
	var out []*rod.Element
	for _, el := range elements {
		ok, err := el.Visible()
		if err != nil {
			// Detached between query and check.
			continue
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}

// firstVisible polls until a visible element matches sel or timeout elapses.
func (s *rodSession) firstVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) (*rod.Element, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(rodPollInterval)
	defer ticker.Stop()

	for {
		elements, err := s.visible(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(elements) > 0 {
			return elements[0], nil
		}
		if time.Now().After(deadline) {
			return nil, timeoutError(sel, timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *rodSession) WaitVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	_, err := s.firstVisible(ctx, sel, timeout)
	return err
}

func (s *rodSession) Count(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	elements, err := s.visible(ctx, sel)
	return len(elements), err
}

func (s *rodSession) Matches(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	elements, err := s.page.Context(ctx).ElementsX(sel.String())
	return len(elements), err
}

func (s *rodSession) Fill(ctx context.Context, sel locator.Selector, value string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	el, err := s.firstVisible(ctx, sel, s.timeout)
	if err != nil {
		return err
	}
	el = el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select text of %s: %w", sel, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", sel, err)
	}
	return nil
}

func (s *rodSession) Click(ctx context.Context, sel locator.Selector) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	el, err := s.firstVisible(ctx, sel, s.timeout)
	if err != nil {
		return err
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

func (s *rodSession) Text(ctx context.Context, sel locator.Selector) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	page := s.page.Context(ctx).Timeout(s.timeout)
	defer page.CancelTimeout()

	el, err := page.ElementX(sel.String())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", timeoutError(sel, s.timeout)
		}
		return "", err
	}
	// textContent, like the XPath string value, ignores text-transform.
	prop, err := el.Property("textContent")
	if err != nil {
		return "", err
	}
	return normalizeSpace(prop.Str()), nil
}

func (s *rodSession) Screenshot(ctx context.Context, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	png, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, png, 0o644)
}

func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.page.Close(), s.browser.Close())
}
