package testsupport

import (
	"path/filepath"
	"testing"

	"rymbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMirror points the mirror tier at a test endpoint.
func WithMirror(url, apiKey string) ConfigOption {
	return func(c *config.Config) {
		c.Mirror.URL = url
		c.Mirror.APIKey = apiKey
	}
}

// WithScraperBase points the scraper at a test endpoint.
func WithScraperBase(url string) ConfigOption {
	return func(c *config.Config) {
		c.Scraper.BaseURL = url
	}
}

// WithNavigationInterval overrides the gate interval for fast tests.
func WithNavigationInterval(ms int) ConfigOption {
	return func(c *config.Config) {
		c.Scraper.MinNavigationInterval = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
