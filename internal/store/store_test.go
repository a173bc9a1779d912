package store_test

import (
	"context"
	"testing"
	"time"

	"rymbridge/internal/ratings"
	"rymbridge/internal/testsupport"
)

func TestGetMissReturnsNilNil(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	rec, err := st.Get(context.Background(), ratings.NewKey("unknown", "album"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record on miss, got %+v", rec)
	}
}

func TestPutThenGetRoundTrip(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	want := &ratings.Record{
		ArtistName:  "Radiohead",
		AlbumName:   "OK Computer",
		Rating:      4.23,
		RatingCount: 78123,
		SourceURL:   "https://rateyourmusic.com/release/album/radiohead/ok-computer/",
		Genres:      "Alternative Rock, Art Rock",
		ReleaseDate: "16 June 1997",
		ResolvedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := st.Put(ctx, want); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := st.Get(ctx, ratings.NewKey("RADIOHEAD", "ok  computer"))
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.ArtistName != want.ArtistName || got.AlbumName != want.AlbumName {
		t.Fatalf("display names mangled: %+v", got)
	}
	if got.Rating != want.Rating || got.RatingCount != want.RatingCount {
		t.Fatalf("rating fields mangled: %+v", got)
	}
	if got.Genres != want.Genres || got.ReleaseDate != want.ReleaseDate {
		t.Fatalf("metadata fields mangled: %+v", got)
	}
	if !got.ResolvedAt.Equal(want.ResolvedAt) {
		t.Fatalf("resolved_at mismatch: got %v want %v", got.ResolvedAt, want.ResolvedAt)
	}
}

func TestPutUpsertsSingleRowPerKey(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	first := testsupport.SeedRecord(t, st, "Boards of Canada", "Geogaddi", base)

	second := *first
	second.Rating = 4.01
	second.RatingCount = 9000
	second.ResolvedAt = base.Add(time.Hour)
	if err := st.Put(ctx, &second); err != nil {
		t.Fatalf("second Put returned error: %v", err)
	}

	count, err := st.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row after upsert, got %d", count)
	}

	got, err := st.Get(ctx, first.Key())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.RatingCount != 9000 {
		t.Fatalf("expected updated count, got %d", got.RatingCount)
	}
}

func TestPutIgnoresOlderResolutions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	current := testsupport.SeedRecord(t, st, "Autechre", "Tri Repetae", base)

	replay := *current
	replay.RatingCount = 1
	replay.ResolvedAt = base.Add(-time.Hour)
	if err := st.Put(ctx, &replay); err != nil {
		t.Fatalf("replay Put returned error: %v", err)
	}

	got, err := st.Get(ctx, current.Key())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.RatingCount != current.RatingCount {
		t.Fatalf("older write clobbered newer row: got count %d", got.RatingCount)
	}
	if !got.ResolvedAt.Equal(base) {
		t.Fatalf("resolved_at rolled backwards: %v", got.ResolvedAt)
	}
}

func TestPutRejectsInvalidRecord(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	bad := &ratings.Record{ArtistName: "x", AlbumName: "y", Rating: 9.9, SourceURL: "https://example"}
	if err := st.Put(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestListOrdersByRecency(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	testsupport.SeedRecord(t, st, "Older Artist", "Older Album", base.Add(-time.Hour))
	testsupport.SeedRecord(t, st, "Newer Artist", "Newer Album", base)

	records, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected two records, got %d", len(records))
	}
	if records[0].ArtistName != "Newer Artist" {
		t.Fatalf("expected newest first, got %q", records[0].ArtistName)
	}
}

func TestDeleteAndRekey(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	rec := testsupport.SeedRecord(t, st, "Misspelled Artist", "Album", base)

	if err := st.Delete(ctx, rec.Key()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	got, err := st.Get(ctx, rec.Key())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Fatal("expected record gone after delete")
	}

	if err := st.Delete(ctx, rec.Key()); err != nil {
		t.Fatalf("deleting absent key should be a no-op, got: %v", err)
	}
}

func TestStats(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Records != 0 || !stats.OldestUpdate.IsZero() {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}

	base := time.Now().UTC().Truncate(time.Second)
	testsupport.SeedRecord(t, st, "A", "First", base.Add(-2*time.Hour))
	testsupport.SeedRecord(t, st, "B", "Second", base)

	stats, err = st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Records != 2 {
		t.Fatalf("expected 2 records, got %d", stats.Records)
	}
	if !stats.NewestUpdate.Equal(base) {
		t.Fatalf("unexpected newest update: %v", stats.NewestUpdate)
	}
	if !stats.OldestUpdate.Equal(base.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected oldest update: %v", stats.OldestUpdate)
	}
}

func TestCheckHealth(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := st.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth returned error: %v", err)
	}
}
