package helpers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/gotrs-io/boardcheck/internal/browser"
	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
	"github.com/gotrs-io/boardcheck/internal/demoapp"
	e2econfig "github.com/gotrs-io/boardcheck/tests/e2e/config"
)

// BrowserHelper owns the engine and one isolated session for a test.
type BrowserHelper struct {
	t       *testing.T
	Config  *e2econfig.TestConfig
	Run     *config.Config
	Dataset dataset.Dataset
	Engine  browser.Engine
	Session browser.Session
	Logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBrowserHelper creates a new browser helper.
func NewBrowserHelper(t *testing.T) *BrowserHelper {
	return &BrowserHelper{
		t:      t,
		Config: e2econfig.GetConfig(),
		Logger: zaptest.NewLogger(t),
	}
}

// Setup loads the dataset, serves the demo board when no BASE_URL is set,
// starts the engine and opens a session. It skips the test when the browser
// cannot be started.
func (b *BrowserHelper) Setup() error {
	if os.Getenv("SKIP_BROWSER") == "true" {
		b.t.Skip("Skipping browser test")
	}

	ds, err := dataset.Load(b.Config.Dataset)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	b.Dataset = ds

	baseURL := b.Config.BaseURL
	if baseURL == "" {
		baseURL, err = b.serveDemo(ds)
		if err != nil {
			return err
		}
	}

	reportDir := filepath.Join(os.TempDir(), "boardcheck-e2e")
	b.Run = b.Config.Run(baseURL, reportDir)

	b.ctx, b.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		b.Engine, lastErr = browser.New(b.ctx, b.Run, b.Logger)
		if lastErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if lastErr != nil {
		b.cancel()
		b.t.Skipf("Could not start %s engine: %v (browsers may not be installed)", b.Run.Browser.Engine, lastErr)
	}

	b.Session, err = b.Engine.NewSession(b.ctx)
	if err != nil {
		_ = b.Engine.Close()
		b.cancel()
		return fmt.Errorf("failed to open session: %w", err)
	}
	return nil
}

func (b *BrowserHelper) serveDemo(ds dataset.Dataset) (string, error) {
	srv, err := demoapp.New(demoapp.FromDataset(ds), demoapp.Options{
		Accounts:   []config.Credentials{{Username: b.Config.Username, Password: b.Config.Password}},
		BcryptCost: bcrypt.MinCost,
	}, b.Logger)
	if err != nil {
		return "", fmt.Errorf("failed to build demo board: %w", err)
	}
	ts := httptest.NewServer(srv.Handler())
	b.t.Cleanup(ts.Close)
	return ts.URL, nil
}

// ServePage serves page as HTML at every path and returns its address.
func (b *BrowserHelper) ServePage(page string) string {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	b.t.Cleanup(ts.Close)
	return ts.URL
}

// Context is bounded by the lifetime of the helper.
func (b *BrowserHelper) Context() context.Context {
	return b.ctx
}

// NavigateTo navigates to a path relative to the base URL.
func (b *BrowserHelper) NavigateTo(path string) error {
	return b.Session.Navigate(b.ctx, b.Run.BaseURL+path)
}

// TearDown keeps a screenshot of failed tests and closes the browser.
func (b *BrowserHelper) TearDown() {
	if b.Session != nil {
		if b.t.Failed() && b.Config.Screenshots {
			name := strings.NewReplacer("/", "_", " ", "_").Replace(b.t.Name())
			path := filepath.Join(b.Run.Report.Dir, "screenshots", fmt.Sprintf("%s_%d.png", name, time.Now().Unix()))
			if err := b.Session.Screenshot(context.Background(), path); err == nil {
				b.t.Logf("Screenshot saved to %s", path)
			}
		}
		_ = b.Session.Close()
	}
	if b.Engine != nil {
		_ = b.Engine.Close()
	}
	if b.cancel != nil {
		b.cancel()
	}
}
