package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScraper()
	c.normalizeMirror()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeScraper() {
	c.Scraper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = defaultScraperBaseURL
	}
	c.Scraper.UserAgent = strings.TrimSpace(c.Scraper.UserAgent)
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaultScraperUserAgent
	}
	if c.Scraper.MinNavigationInterval <= 0 {
		c.Scraper.MinNavigationInterval = defaultNavigationIntervalMS
	}
	if c.Scraper.NavigationTimeout <= 0 {
		c.Scraper.NavigationTimeout = defaultNavigationTimeoutSecs
	}
}

func (c *Config) normalizeMirror() {
	if c.Mirror.URL == "" {
		c.Mirror.URL = os.Getenv("RYMBRIDGE_MIRROR_URL")
	}
	if c.Mirror.APIKey == "" {
		c.Mirror.APIKey = os.Getenv("RYMBRIDGE_MIRROR_API_KEY")
	}
	c.Mirror.URL = strings.TrimRight(strings.TrimSpace(c.Mirror.URL), "/")
	c.Mirror.APIKey = strings.TrimSpace(c.Mirror.APIKey)
	c.Mirror.Table = strings.TrimSpace(c.Mirror.Table)
	if c.Mirror.Table == "" {
		c.Mirror.Table = defaultMirrorTable
	}
	if c.Mirror.Timeout <= 0 {
		c.Mirror.Timeout = defaultMirrorTimeoutSecs
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.NegativeTTLSeconds <= 0 {
		c.Cache.NegativeTTLSeconds = defaultNegativeTTLSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
