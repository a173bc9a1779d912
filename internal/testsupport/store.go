package testsupport

import (
	"context"
	"testing"
	"time"

	"rymbridge/internal/config"
	"rymbridge/internal/ratings"
	"rymbridge/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedRecord builds a plausible record and persists it.
func SeedRecord(t testing.TB, st *store.Store, artist, album string, resolvedAt time.Time) *ratings.Record {
	t.Helper()

	rec := &ratings.Record{
		ArtistName:  artist,
		AlbumName:   album,
		Rating:      3.87,
		RatingCount: 1204,
		SourceURL:   "https://rateyourmusic.com/release/album/test/test/",
		ResolvedAt:  resolvedAt,
	}
	if err := st.Put(context.Background(), rec); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	return rec
}
