// Package daemon assembles the rating engine: store, mirror, browsing
// session, gate, scraper, resolver, broadcast hub, and the HTTP API. It also
// enforces single-instance execution via a lock file.
package daemon
