// Package config resolves the settings of the browser-level end-to-end suite
// from the environment.
package config

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/locator"
)

// TestConfig holds all configuration for E2E tests.
type TestConfig struct {
	// BaseURL of the board under test. Empty means the suite serves its own
	// demo board.
	BaseURL     string
	Engine      string
	Headless    bool
	SlowMo      int
	Screenshots bool
	Videos      bool
	Username    string
	Password    string
	Dataset     string
	Timeout     time.Duration
}

// GetConfig returns the test configuration from environment variables.
func GetConfig() *TestConfig {
	baseURL := strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if baseURL != "" && !reachable(baseURL) {
		log.Printf("[e2e-config] BASE_URL=%s is not reachable, falling back to the demo board", baseURL)
		baseURL = ""
	}

	engine := os.Getenv("E2E_ENGINE")
	if engine == "" {
		engine = config.EnginePlaywright
	}

	slowMo := 0
	if raw := os.Getenv("SLOW_MO"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil {
			slowMo = ms
		} else {
			slowMo = 100
		}
	}

	return &TestConfig{
		BaseURL:     baseURL,
		Engine:      engine,
		Headless:    os.Getenv("HEADLESS") != "false",
		SlowMo:      slowMo,
		Screenshots: os.Getenv("SCREENSHOTS") != "false",
		Videos:      os.Getenv("VIDEOS") == "true",
		Username:    envOr("E2E_USERNAME", "alice"),
		Password:    envOr("E2E_PASSWORD", "pw"),
		Dataset:     envOr("E2E_DATASET", "../../data/tasks.json"),
		Timeout:     30 * time.Second,
	}
}

// Run builds the run configuration the board components consume. baseURL
// replaces an empty BaseURL, typically with the address of the demo board.
func (c *TestConfig) Run(baseURL, reportDir string) *config.Config {
	if c.BaseURL != "" {
		baseURL = c.BaseURL
	}
	layout := locator.DefaultLayout()

	return &config.Config{
		BaseURL:     baseURL,
		Credentials: config.Credentials{Username: c.Username, Password: c.Password},
		Dataset:     c.Dataset,
		Browser: config.BrowserConfig{
			Engine:         c.Engine,
			Headless:       c.Headless,
			SlowMo:         c.SlowMo,
			Install:        os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1",
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Videos:         c.Videos,
		},
		Timeouts: config.TimeoutConfig{
			Action:    c.Timeout,
			Assertion: 5 * time.Second,
			Scenario:  2 * time.Minute,
		},
		Layout: config.LayoutConfig{Landmark: layout.Landmark, ColumnClass: layout.ColumnClass},
		Runner: config.RunnerConfig{Parallel: 1},
		Report: config.ReportConfig{
			Dir:         reportDir,
			Formats:     []string{config.FormatConsole},
			Screenshots: c.Screenshots,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func reachable(base string) bool {
	u, err := url.Parse(base)
	if err != nil {
		return false
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		host += ":80"
	}
	d := net.Dialer{Timeout: 250 * time.Millisecond}
	conn, err := d.Dial("tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 800 * time.Millisecond}
	for _, path := range []string{"/healthz", "/login"} {
		resp, err := client.Get(base + path)
		if err == nil {
			_ = resp.Body.Close()
			return true
		}
	}
	return false
}
