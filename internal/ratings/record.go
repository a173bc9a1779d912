package ratings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// Record is the unit of cached knowledge: one resolved rating for one
// normalized (artist, album) key.
type Record struct {
	ArtistName  string    `json:"artist_name"`
	AlbumName   string    `json:"album_name"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	SourceURL   string    `json:"source_url"`
	Genres      string    `json:"genres,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Key identifies a rating. Both fields hold the normalized form; build keys
// through NewKey or Record.Key so every tier derives them identically.
type Key struct {
	Artist string
	Album  string
}

var foldCaser = cases.Fold()

// Normalize case-folds a name and collapses interior whitespace. Cache lookups
// silently miss when any derivation path disagrees, so this is the single
// normalization used everywhere.
func Normalize(name string) string {
	return strings.Join(strings.Fields(foldCaser.String(name)), " ")
}

// NewKey derives the normalized key for an (artist, album) pair.
func NewKey(artist, album string) Key {
	return Key{Artist: Normalize(artist), Album: Normalize(album)}
}

// Key returns the record's normalized key.
func (r *Record) Key() Key {
	return NewKey(r.ArtistName, r.AlbumName)
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	return k.Artist + " - " + k.Album
}

// Zero reports whether the key carries no identity at all.
func (k Key) Zero() bool {
	return k.Artist == "" && k.Album == ""
}

// Equal reports whether two records would render identically on a rating
// badge: same rating, vote count, and source URL. Used by the broadcaster to
// suppress redundant re-delivery.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Rating == other.Rating &&
		r.RatingCount == other.RatingCount &&
		r.SourceURL == other.SourceURL
}

// Validate rejects malformed records at the engine boundary.
func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(r.ArtistName) == "" {
		return errors.New("artist name is required")
	}
	if strings.TrimSpace(r.AlbumName) == "" {
		return errors.New("album name is required")
	}
	if r.Rating < 0 || r.Rating > MaxRating {
		return fmt.Errorf("rating %.2f outside range [0, %.2f]", r.Rating, MaxRating)
	}
	if r.RatingCount < 0 {
		return fmt.Errorf("rating count %d is negative", r.RatingCount)
	}
	if strings.TrimSpace(r.SourceURL) == "" {
		return errors.New("source url is required")
	}
	return nil
}
