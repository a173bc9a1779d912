package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind %q must be host:port", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateScraper() error {
	parsed, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("scraper.base_url %q must be an absolute URL", c.Scraper.BaseURL)
	}
	if c.Scraper.MinNavigationInterval < 500 {
		return errors.New("scraper.min_navigation_interval_ms must be at least 500")
	}
	return nil
}

func (c *Config) validateMirror() error {
	if c.Mirror.URL == "" && c.Mirror.APIKey == "" {
		return nil
	}
	if c.Mirror.URL == "" {
		return errors.New("mirror.api_key is set but mirror.url is empty")
	}
	if c.Mirror.APIKey == "" {
		return errors.New("mirror.url is set but mirror.api_key is empty. Set RYMBRIDGE_MIRROR_API_KEY or add it to the config file")
	}
	parsed, err := url.Parse(c.Mirror.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("mirror.url %q must be an absolute URL", c.Mirror.URL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
