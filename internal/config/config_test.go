package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rymbridge/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "rymbridge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7512" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Scraper.BaseURL != "https://rateyourmusic.com" {
		t.Fatalf("unexpected scraper base url: %q", cfg.Scraper.BaseURL)
	}
	if cfg.Scraper.MinNavigationInterval != 2000 {
		t.Fatalf("unexpected navigation interval: %d", cfg.Scraper.MinNavigationInterval)
	}
	if cfg.MirrorEnabled() {
		t.Fatal("expected mirror disabled by default")
	}
	if cfg.Cache.CacheNegative {
		t.Fatal("expected negative caching disabled by default")
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "ratings.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadReadsFileAndTrimsBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[scraper]
base_url = "https://rym.example.org/"
min_navigation_interval_ms = 2500

[mirror]
url = "https://mirror.example.org"
api_key = "secret"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Scraper.BaseURL != "https://rym.example.org" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Scraper.BaseURL)
	}
	if cfg.Scraper.MinNavigationInterval != 2500 {
		t.Fatalf("unexpected navigation interval: %d", cfg.Scraper.MinNavigationInterval)
	}
	if !cfg.MirrorEnabled() {
		t.Fatal("expected mirror enabled")
	}
	if cfg.Mirror.Table != "album_ratings" {
		t.Fatalf("unexpected mirror table: %q", cfg.Mirror.Table)
	}
}

func TestMirrorAPIKeyEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[mirror]
url = "https://mirror.example.org"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RYMBRIDGE_MIRROR_API_KEY", "env-secret")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Mirror.APIKey != "env-secret" {
		t.Fatalf("expected api key from env, got %q", cfg.Mirror.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"interval too small", func(c *config.Config) { c.Scraper.MinNavigationInterval = 100 }, "min_navigation_interval_ms"},
		{"relative base url", func(c *config.Config) { c.Scraper.BaseURL = "rateyourmusic.com" }, "scraper.base_url"},
		{"mirror url without key", func(c *config.Config) { c.Mirror.URL = "https://mirror.example.org" }, "mirror.api_key"},
		{"mirror key without url", func(c *config.Config) { c.Mirror.APIKey = "secret" }, "mirror.url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[scraper]") {
		t.Fatal("sample config missing scraper section")
	}
}
