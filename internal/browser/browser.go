// Package browser drives a web browser on behalf of the board components.
//
// An Engine owns the browser process and hands out Sessions. Every Session is
// an isolated browsing context with its own cookies, so two scenarios never
// share a signed-in state. Sessions evaluate locator.Selector XPath queries.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

var (
	// ErrTimeout means an element did not become visible in time.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrNotFound means no element matched when one was required immediately.
	ErrNotFound = errors.New("no element matches")
	// ErrUnsupported is returned by engines that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by engine")
	// ErrClosed is returned when a session is used after Close.
	ErrClosed = errors.New("session closed")
)

// Engine owns a browser and creates isolated sessions.
type Engine interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is one isolated browsing context.
type Session interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error
	// WaitVisible polls until at least one element matching sel is visible.
	// It returns an error wrapping ErrTimeout when timeout elapses first.
	WaitVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) error
	// Count returns how many elements matching sel are visible right now.
	Count(ctx context.Context, sel locator.Selector) (int, error)
	// Matches returns how many elements match sel, hidden ones included.
	Matches(ctx context.Context, sel locator.Selector) (int, error)
	// Fill replaces the value of the first visible match.
	Fill(ctx context.Context, sel locator.Selector, value string) error
	// Click activates the first visible match.
	Click(ctx context.Context, sel locator.Selector) error
	// Text returns the whitespace-normalized text of the first match.
	Text(ctx context.Context, sel locator.Selector) (string, error)
	// Screenshot writes a PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Options are the engine settings derived from configuration.
type Options struct {
	Headless       bool
	SlowMo         time.Duration
	Install        bool
	ViewportWidth  int
	ViewportHeight int
	VideoDir       string
	// ActionTimeout bounds navigation, fill, click and text reads.
	ActionTimeout time.Duration
}

// OptionsFromConfig maps the run configuration to engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Headless:       cfg.Browser.Headless,
		SlowMo:         time.Duration(cfg.Browser.SlowMo) * time.Millisecond,
		Install:        cfg.Browser.Install,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		ActionTimeout:  cfg.Timeouts.Action,
	}
	if cfg.Browser.Videos && cfg.Report.Dir != "" {
		opts.VideoDir = cfg.Report.Dir + "/videos"
	}
	return opts
}

// New starts the engine named by cfg.Browser.Engine.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Engine, error) {
	opts := OptionsFromConfig(cfg)
	logger = logger.With(zap.String("engine", cfg.Browser.Engine))

	switch cfg.Browser.Engine {
	case config.EnginePlaywright:
		return NewPlaywrightEngine(opts, logger)
	case config.EngineRod:
		return NewRodEngine(ctx, opts, logger)
	case config.EngineHTTP:
		return NewHTTPEngine(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Browser.Engine)
	}
}

func timeoutError(sel locator.Selector, timeout time.Duration) error {
	return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, sel)
}
