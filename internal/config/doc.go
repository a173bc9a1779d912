// Package config loads, normalizes, and validates rymbridge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RYMBRIDGE_MIRROR_API_KEY. The Config type centralizes every knob the daemon
// and CLI need, from the navigation rate limit of the scraping session to the
// remote mirror credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
