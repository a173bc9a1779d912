package api

import (
	"time"

	"rymbridge/internal/ratings"
)

// ResolveRequest is the body of POST /api/resolve.
type ResolveRequest struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// RatingPayload is the wire form of a resolved rating.
type RatingPayload struct {
	ArtistName  string    `json:"artist_name"`
	AlbumName   string    `json:"album_name"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	SourceURL   string    `json:"source_url"`
	Genres      string    `json:"genres,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// FromRecord converts a domain record to its wire form.
func FromRecord(rec *ratings.Record) *RatingPayload {
	if rec == nil {
		return nil
	}
	return &RatingPayload{
		ArtistName:  rec.ArtistName,
		AlbumName:   rec.AlbumName,
		Rating:      rec.Rating,
		RatingCount: rec.RatingCount,
		SourceURL:   rec.SourceURL,
		Genres:      rec.Genres,
		ReleaseDate: rec.ReleaseDate,
		ResolvedAt:  rec.ResolvedAt,
	}
}

// ResolveResponse is the body of a completed resolution.
type ResolveResponse struct {
	Rating        *RatingPayload `json:"rating,omitempty"`
	Source        string         `json:"source,omitempty"`
	Stale         bool           `json:"stale,omitempty"`
	PersistFailed bool           `json:"persist_failed,omitempty"`
	NotFound      bool           `json:"not_found,omitempty"`
}

// RatingsResponse is the body of the cache-only lookup.
type RatingsResponse struct {
	Rating *RatingPayload `json:"rating,omitempty"`
	Found  bool           `json:"found"`
}

// UpdatePayload is one entry in the rating update feed.
type UpdatePayload struct {
	Sequence  uint64         `json:"seq"`
	Timestamp time.Time      `json:"ts"`
	Rating    *RatingPayload `json:"rating"`
}

// UpdatesResponse is the body of the long-poll update feed.
type UpdatesResponse struct {
	Updates []UpdatePayload `json:"updates"`
	Next    uint64          `json:"next"`
}

// StatusResponse reports daemon diagnostics.
type StatusResponse struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	DatabasePath  string `json:"database_path"`
	LockFilePath  string `json:"lock_file_path"`
	CachedRatings int64  `json:"cached_ratings"`
	MirrorEnabled bool   `json:"mirror_enabled"`
}
