package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Scraper contains configuration for the shared browsing session used for
// live rating extraction.
type Scraper struct {
	BaseURL               string `toml:"base_url"`
	UserAgent             string `toml:"user_agent"`
	MinNavigationInterval int    `toml:"min_navigation_interval_ms"`
	NavigationTimeout     int    `toml:"navigation_timeout_seconds"`
}

// Mirror contains configuration for the optional remote rating mirror.
// Leaving url or api_key empty disables the tier.
type Mirror struct {
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Table   string `toml:"table"`
	Timeout int    `toml:"request_timeout_seconds"`
}

// Cache contains retention policy knobs for rating lookups.
type Cache struct {
	// CacheNegative keeps "no listing" outcomes in memory so repeated lookups
	// for unlisted albums skip the slow path for a while. Never persisted.
	CacheNegative      bool `toml:"cache_negative"`
	NegativeTTLSeconds int  `toml:"negative_ttl_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rymbridge.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Scraper Scraper `toml:"scraper"`
	Mirror  Mirror  `toml:"mirror"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rymbridge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rymbridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the local rating store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "ratings.db")
}

// NavigationInterval returns the minimum delay between committed navigations.
func (c *Config) NavigationInterval() time.Duration {
	return time.Duration(c.Scraper.MinNavigationInterval) * time.Millisecond
}

// NavigationTimeout returns the per-navigation deadline.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Scraper.NavigationTimeout) * time.Second
}

// MirrorTimeout returns the per-request deadline for mirror calls.
func (c *Config) MirrorTimeout() time.Duration {
	return time.Duration(c.Mirror.Timeout) * time.Second
}

// MirrorEnabled reports whether the remote mirror tier is configured.
func (c *Config) MirrorEnabled() bool {
	return strings.TrimSpace(c.Mirror.URL) != "" && strings.TrimSpace(c.Mirror.APIKey) != ""
}

// NegativeTTL returns how long an in-memory negative result is honored.
func (c *Config) NegativeTTL() time.Duration {
	return time.Duration(c.Cache.NegativeTTLSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
