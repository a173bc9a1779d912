package ratings

import (
	"strconv"
	"strings"
	"time"
)

// defaultTTL applies when the release date is unknown or unparseable.
const defaultTTL = 180 * 24 * time.Hour

// ParseReleaseDate interprets the free-form release date text found on album
// pages. Supported shapes: "24 December 2025", "24 Dec 2025", "December 2025",
// "Dec 2025", and a bare year. Returns the zero time when nothing matches.
func ParseReleaseDate(text string) time.Time {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}
	}

	layouts := []string{"2 January 2006", "2 Jan 2006", "January 2006", "Jan 2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC()
		}
	}

	if year, err := strconv.Atoi(trimmed); err == nil && year > 1900 && year < 2100 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// TTL returns how long a cached record stays fresh. Newer releases accumulate
// votes quickly, so their cached ratings expire sooner.
func TTL(releaseDate string, now time.Time) time.Duration {
	released := ParseReleaseDate(releaseDate)
	if released.IsZero() {
		return defaultTTL
	}

	age := now.Sub(released)
	switch {
	case age < 14*24*time.Hour:
		return 24 * time.Hour
	case age < 30*24*time.Hour:
		return 3 * 24 * time.Hour
	case age < 180*24*time.Hour:
		return 14 * 24 * time.Hour
	case age < 365*24*time.Hour:
		return 30 * 24 * time.Hour
	case age < 2*365*24*time.Hour:
		return 90 * 24 * time.Hour
	default:
		return defaultTTL
	}
}

// Fresh reports whether the record's resolution is still within its TTL.
func (r *Record) Fresh(now time.Time) bool {
	if r == nil || r.ResolvedAt.IsZero() {
		return false
	}
	return now.Sub(r.ResolvedAt) < TTL(r.ReleaseDate, now)
}
