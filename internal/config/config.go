package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gotrs-io/boardcheck/internal/locator"
)

// DefaultPath is where the configuration is looked up when no path is given.
const DefaultPath = "data/config.json"

// EnvPrefix prefixes every environment override, e.g. BOARDCHECK_BASEURL.
const EnvPrefix = "BOARDCHECK"

// Browser engines.
const (
	EnginePlaywright = "playwright"
	EngineRod        = "rod"
	EngineHTTP       = "http"
)

// Report formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
	FormatXLSX    = "xlsx"
	FormatHTML    = "html"
	FormatMetrics = "metrics"
)

var (
	// Engines lists the supported browser engines.
	Engines = []string{EnginePlaywright, EngineRod, EngineHTTP}
	// Formats lists the supported report formats.
	Formats = []string{FormatConsole, FormatJSON, FormatJUnit, FormatXLSX, FormatHTML, FormatMetrics}
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the run configuration. It is loaded once and never mutated.
type Config struct {
	BaseURL     string        `mapstructure:"baseUrl"`
	Credentials Credentials   `mapstructure:"credentials"`
	Dataset     string        `mapstructure:"dataset"`
	Browser     BrowserConfig `mapstructure:"browser"`
	Timeouts    TimeoutConfig `mapstructure:"timeouts"`
	Layout      LayoutConfig  `mapstructure:"layout"`
	Runner      RunnerConfig  `mapstructure:"runner"`
	Report      ReportConfig  `mapstructure:"report"`
}

type Credentials struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type BrowserConfig struct {
	Engine         string `mapstructure:"engine"`
	Headless       bool   `mapstructure:"headless"`
	SlowMo         int    `mapstructure:"slowMo"`
	Install        bool   `mapstructure:"install"`
	ViewportWidth  int    `mapstructure:"viewportWidth"`
	ViewportHeight int    `mapstructure:"viewportHeight"`
	Videos         bool   `mapstructure:"videos"`
}

type TimeoutConfig struct {
	// Action bounds navigation, fill and click.
	Action time.Duration `mapstructure:"action"`
	// Assertion bounds every visibility or text assertion.
	Assertion time.Duration `mapstructure:"assertion"`
	// Scenario bounds one whole scenario including sign in.
	Scenario time.Duration `mapstructure:"scenario"`
}

type LayoutConfig struct {
	Landmark    string `mapstructure:"landmark"`
	ColumnClass string `mapstructure:"columnClass"`
}

type RunnerConfig struct {
	Parallel int `mapstructure:"parallel"`
}

type ReportConfig struct {
	Dir         string   `mapstructure:"dir"`
	Formats     []string `mapstructure:"formats"`
	Screenshots bool     `mapstructure:"screenshots"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("baseUrl", "")
	v.SetDefault("credentials.username", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("dataset", "data/tasks.json")

	v.SetDefault("browser.engine", EnginePlaywright)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slowMo", 0)
	v.SetDefault("browser.install", true)
	v.SetDefault("browser.viewportWidth", 1280)
	v.SetDefault("browser.viewportHeight", 720)
	v.SetDefault("browser.videos", false)

	v.SetDefault("timeouts.action", 30*time.Second)
	v.SetDefault("timeouts.assertion", 5*time.Second)
	v.SetDefault("timeouts.scenario", 2*time.Minute)

	layout := locator.DefaultLayout()
	v.SetDefault("layout.landmark", layout.Landmark)
	v.SetDefault("layout.columnClass", layout.ColumnClass)

	v.SetDefault("runner.parallel", 1)

	v.SetDefault("report.dir", "test-results")
	v.SetDefault("report.formats", []string{FormatConsole})
	v.SetDefault("report.screenshots", true)
}

// Load reads the configuration file at path, applies BOARDCHECK_* environment
// overrides and validates the result. An empty path falls back to DefaultPath
// when that file exists, and to defaults plus environment otherwise.
func Load(path string) (*Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	setDefaults(v)

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv copies KEY=VALUE pairs from a dotenv file into the process
// environment. Variables that are already set win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	d := viper.New()
	d.SetConfigFile(path)
	d.SetConfigType("env")
	if err := d.ReadInConfig(); err != nil {
		return
	}
	for _, key := range d.AllKeys() {
		name := strings.ToUpper(key)
		if os.Getenv(name) != "" {
			continue
		}
		if val := d.GetString(key); val != "" {
			_ = os.Setenv(name, val)
		}
	}
}

// Locators returns the markup conventions used to build element queries.
func (c *Config) Locators() locator.Layout {
	return locator.Layout{
		Landmark:    c.Layout.Landmark,
		ColumnClass: c.Layout.ColumnClass,
	}
}

// HasFormat reports whether the report format is enabled.
func (c *ReportConfig) HasFormat(format string) bool {
	for _, f := range c.Formats {
		if strings.EqualFold(strings.TrimSpace(f), format) {
			return true
		}
	}
	return false
}
