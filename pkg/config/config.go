// Package config holds the worker configuration for SentinelQA test runs.
// Configuration is loaded from a YAML file and may be overridden by
// environment variables for deployment without a config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration for a SentinelQA worker.
type Config struct {
	// Oracle configures the vision-capable decision service
	Oracle OracleConfig `yaml:"oracle" json:"oracle"`

	// Browser configures the Playwright session
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Run configures per-run execution limits
	Run RunConfig `yaml:"run" json:"run"`

	// Artifacts configures where run artifacts are written
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`
}

// OracleConfig defines the connection to the decision oracle.
type OracleConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// BrowserConfig defines browser launch options.
type BrowserConfig struct {
	Headless       bool `yaml:"headless" json:"headless"`
	ViewportWidth  int  `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height" json:"viewport_height"`

	// AllowedHosts optionally restricts which hosts a run may navigate to.
	// Entries are glob patterns matched against the target URL host
	// (e.g. "*.example.com"). Empty means no restriction.
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts"`
}

// RunConfig defines execution limits for a single test run.
type RunConfig struct {
	// MaxSteps bounds the number of decision steps per run
	MaxSteps int `yaml:"max_steps" json:"max_steps"`

	// NavigationTimeoutMs applies to the initial page load
	NavigationTimeoutMs float64 `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms"`

	// ActionTimeoutMs applies to individual click/fill attempts
	ActionTimeoutMs float64 `yaml:"action_timeout_ms" json:"action_timeout_ms"`
}

// ArtifactConfig defines artifact output directories.
type ArtifactConfig struct {
	VideoDir      string `yaml:"video_dir" json:"video_dir"`
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`
}

// Defaults matching the behavior documented in the run loop.
const (
	DefaultModel             = "gpt-4o"
	DefaultMaxSteps          = 10
	DefaultNavigationTimeout = 30000.0
	DefaultActionTimeout     = 5000.0
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 720
	DefaultVideoDir          = "videos"
	DefaultScreenshotDir     = "screenshots"
)

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			Model: DefaultModel,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  DefaultViewportWidth,
			ViewportHeight: DefaultViewportHeight,
		},
		Run: RunConfig{
			MaxSteps:            DefaultMaxSteps,
			NavigationTimeoutMs: DefaultNavigationTimeout,
			ActionTimeoutMs:     DefaultActionTimeout,
		},
		Artifacts: ArtifactConfig{
			VideoDir:      DefaultVideoDir,
			ScreenshotDir: DefaultScreenshotDir,
		},
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides, and fills in defaults. An empty path returns the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Oracle.APIKey == "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("SENTINEL_ORACLE_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv("SENTINEL_ORACLE_BASE_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_VIDEO_DIR"); v != "" {
		c.Artifacts.VideoDir = v
	}
	if v := os.Getenv("SENTINEL_SCREENSHOT_DIR"); v != "" {
		c.Artifacts.ScreenshotDir = v
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.Oracle.Model == "" {
		c.Oracle.Model = DefaultModel
	}
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = DefaultViewportWidth
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = DefaultViewportHeight
	}
	if c.Run.MaxSteps == 0 {
		c.Run.MaxSteps = DefaultMaxSteps
	}
	if c.Run.NavigationTimeoutMs == 0 {
		c.Run.NavigationTimeoutMs = DefaultNavigationTimeout
	}
	if c.Run.ActionTimeoutMs == 0 {
		c.Run.ActionTimeoutMs = DefaultActionTimeout
	}
	if c.Artifacts.VideoDir == "" {
		c.Artifacts.VideoDir = DefaultVideoDir
	}
	if c.Artifacts.ScreenshotDir == "" {
		c.Artifacts.ScreenshotDir = DefaultScreenshotDir
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Run.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.Run.MaxSteps)
	}
	if c.Run.NavigationTimeoutMs <= 0 {
		return fmt.Errorf("navigation_timeout_ms must be positive")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}
	if c.Artifacts.VideoDir == "" {
		return fmt.Errorf("video_dir is required")
	}
	if c.Artifacts.ScreenshotDir == "" {
		return fmt.Errorf("screenshot_dir is required")
	}
	return nil
}
