// Package ratings defines the rating record domain model, the normalized
// (artist, album) key shared by every cache tier, and the freshness schedule
// that decides when a cached record should be refreshed.
package ratings
