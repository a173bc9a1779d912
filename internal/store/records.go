package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rymbridge/internal/ratings"
)

const recordColumns = `artist_name, album_name, rating, rating_count, source_url, genres, release_date, resolved_at`

func scanRecord(row interface{ Scan(...any) error }) (*ratings.Record, error) {
	var (
		rec        ratings.Record
		resolvedAt int64
	)
	err := row.Scan(
		&rec.ArtistName,
		&rec.AlbumName,
		&rec.Rating,
		&rec.RatingCount,
		&rec.SourceURL,
		&rec.Genres,
		&rec.ReleaseDate,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ResolvedAt = time.Unix(resolvedAt, 0).UTC()
	return &rec, nil
}

// Get fetches the cached record for a key. Returns (nil, nil) on a miss.
func (s *Store) Get(ctx context.Context, key ratings.Key) (*ratings.Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM album_ratings WHERE artist_key = ? AND album_key = ?`,
		key.Artist,
		key.Album,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return rec, nil
}

// Put upserts a record under its normalized key. An incoming write whose
// resolved_at is older than the stored row is silently ignored so replayed or
// out-of-order resolutions can never roll a rating backwards.
func (s *Store) Put(ctx context.Context, rec *ratings.Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("put rating: %w", err)
	}
	key := rec.Key()
	resolvedAt := rec.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO album_ratings (
            artist_key, album_key, artist_name, album_name,
            rating, rating_count, source_url, genres, release_date, resolved_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (album_key, artist_key) DO UPDATE SET
            artist_name = excluded.artist_name,
            album_name = excluded.album_name,
            rating = excluded.rating,
            rating_count = excluded.rating_count,
            source_url = excluded.source_url,
            genres = excluded.genres,
            release_date = excluded.release_date,
            resolved_at = excluded.resolved_at
        WHERE excluded.resolved_at >= album_ratings.resolved_at`,
		key.Artist,
		key.Album,
		rec.ArtistName,
		rec.AlbumName,
		rec.Rating,
		rec.RatingCount,
		rec.SourceURL,
		rec.Genres,
		rec.ReleaseDate,
		resolvedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put rating: %w", err)
	}
	return nil
}

// Delete removes the record for a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key ratings.Key) error {
	_, err := s.execWithRetry(
		ctx,
		`DELETE FROM album_ratings WHERE artist_key = ? AND album_key = ?`,
		key.Artist,
		key.Album,
	)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}

// List returns all cached records ordered by most recently resolved.
func (s *Store) List(ctx context.Context) ([]*ratings.Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM album_ratings ORDER BY resolved_at DESC, artist_key, album_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	var records []*ratings.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return records, nil
}

// Count returns the number of cached records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM album_ratings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}

// Stats summarizes the cache for diagnostics.
type Stats struct {
	Records      int64
	OldestUpdate time.Time
	NewestUpdate time.Time
}

// Stats returns cache-wide aggregates.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var (
		stats  Stats
		oldest sql.NullInt64
		newest sql.NullInt64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1), MIN(resolved_at), MAX(resolved_at) FROM album_ratings`,
	).Scan(&stats.Records, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("rating stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestUpdate = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		stats.NewestUpdate = time.Unix(newest.Int64, 0).UTC()
	}
	return stats, nil
}
