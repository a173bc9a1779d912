package config

const (
	defaultDataDir               = "~/.local/share/rymbridge"
	defaultLogDir                = "~/.local/share/rymbridge/logs"
	defaultAPIBind               = "127.0.0.1:7512"
	defaultScraperBaseURL        = "https://rateyourmusic.com"
	defaultScraperUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	defaultNavigationIntervalMS  = 2000
	defaultNavigationTimeoutSecs = 30
	defaultMirrorTable           = "album_ratings"
	defaultMirrorTimeoutSecs     = 10
	defaultNegativeTTLSeconds    = 3600
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scraper: Scraper{
			BaseURL:               defaultScraperBaseURL,
			UserAgent:             defaultScraperUserAgent,
			MinNavigationInterval: defaultNavigationIntervalMS,
			NavigationTimeout:     defaultNavigationTimeoutSecs,
		},
		Mirror: Mirror{
			Table:   defaultMirrorTable,
			Timeout: defaultMirrorTimeoutSecs,
		},
		Cache: Cache{
			CacheNegative:      false,
			NegativeTTLSeconds: defaultNegativeTTLSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
