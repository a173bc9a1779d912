package resolver_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rymbridge/internal/broadcast"
	"rymbridge/internal/config"
	"rymbridge/internal/logging"
	"rymbridge/internal/mirror"
	"rymbridge/internal/ratings"
	"rymbridge/internal/resolver"
	"rymbridge/internal/scraper"
	"rymbridge/internal/store"
	"rymbridge/internal/testsupport"
)

type fakeExtractor struct {
	mu      sync.Mutex
	calls   int32
	rec     *ratings.Record
	err     error
	release chan struct{} // when non-nil, Lookup blocks until closed or ctx ends
}

func (f *fakeExtractor) Lookup(ctx context.Context, artist, album string) (*ratings.Record, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.rec
	rec.ArtistName = artist
	rec.AlbumName = album
	rec.ResolvedAt = time.Now().UTC()
	return &rec, nil
}

func (f *fakeExtractor) callCount() int32 { return atomic.LoadInt32(&f.calls) }

type fakeMirror struct {
	mu   sync.Mutex
	rows map[ratings.Key]*ratings.Record
	err  error
	puts int
}

func (m *fakeMirror) Get(ctx context.Context, key ratings.Key) (*ratings.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.rows[key], nil
}

func (m *fakeMirror) Put(ctx context.Context, rec *ratings.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.rows == nil {
		m.rows = make(map[ratings.Key]*ratings.Record)
	}
	m.rows[rec.Key()] = rec
	return nil
}

func (m *fakeMirror) Enabled() bool { return true }

func scrapedRecord() *ratings.Record {
	return &ratings.Record{
		Rating:      4.23,
		RatingCount: 78123,
		SourceURL:   "https://rateyourmusic.com/release/album/radiohead/ok-computer/",
		Genres:      "Art Rock",
		ReleaseDate: "16 June 1997",
	}
}

type fixture struct {
	st  *store.Store
	hub *broadcast.Hub
	cfg *config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return fixture{
		st:  testsupport.MustOpenStore(t, cfg),
		hub: broadcast.NewHub(64),
		cfg: cfg,
	}
}

func (fx fixture) resolver(t *testing.T, mc mirror.Client, ex resolver.Extractor) *resolver.Resolver {
	t.Helper()
	r := resolver.New(fx.st, mc, ex, fx.hub, fx.cfg, logging.NewNop())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestFreshCacheHitSkipsSlowPath(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	testsupport.SeedRecord(t, fx.st, "Radiohead", "OK Computer", time.Now().UTC())

	out, err := r.Resolve(context.Background(), "radiohead", "ok computer")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.Source != resolver.SourceCache || out.Stale {
		t.Fatalf("expected fresh cache outcome, got %+v", out)
	}
	if ex.callCount() != 0 {
		t.Fatal("fresh cache hit must not invoke the extractor")
	}
}

func TestMissResolvesAndWritesBack(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	var published []broadcast.Update
	cancel := fx.hub.Subscribe(func(u broadcast.Update) { published = append(published, u) })
	defer cancel()

	out, err := r.Resolve(context.Background(), "Radiohead", "OK Computer")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.Source != resolver.SourceScraper || out.PersistErr != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	stored, err := fx.st.Get(context.Background(), ratings.NewKey("Radiohead", "OK Computer"))
	if err != nil || stored == nil {
		t.Fatalf("expected write-back, got rec=%v err=%v", stored, err)
	}
	if len(published) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(published))
	}
}

func TestSingleFlightCoalescesConcurrentCallers(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord(), release: make(chan struct{})}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	var published int32
	cancel := fx.hub.Subscribe(func(broadcast.Update) { atomic.AddInt32(&published, 1) })
	defer cancel()

	const callers = 8
	outcomes := make([]resolver.Outcome, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = r.Resolve(context.Background(), "Autechre", "Tri Repetae")
		}(i)
	}

	// Let all callers attach before the extractor finishes.
	deadline := time.After(2 * time.Second)
	for ex.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("extractor never invoked")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(ex.release)
	wg.Wait()

	if got := ex.callCount(); got != 1 {
		t.Fatalf("expected one extractor invocation, got %d", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if outcomes[i].Record != outcomes[0].Record {
			t.Fatal("coalesced callers must share the identical outcome")
		}
	}
	if atomic.LoadInt32(&published) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", published)
	}
}

func TestNoListingIsNotFoundAndNotPersisted(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{err: scraper.ErrNoListing}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	_, err := r.Resolve(context.Background(), "Nobody", "Nothing")
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	count, err := fx.st.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("negative result must not be persisted, found %d rows", count)
	}
}

func TestStaleCacheServedWhenSlowPathFails(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{err: errors.New("upstream 503")}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	stale := time.Now().UTC().Add(-365 * 24 * time.Hour)
	testsupport.SeedRecord(t, fx.st, "Autechre", "Tri Repetae", stale)

	out, err := r.Resolve(context.Background(), "Autechre", "Tri Repetae")
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if !out.Stale || out.Record == nil {
		t.Fatalf("expected stale candidate outcome, got %+v", out)
	}
	if ex.callCount() != 1 {
		t.Fatal("stale hit should still attempt the slow path")
	}
}

func TestSlowPathFailureWithoutCandidatePropagates(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{err: errors.New("upstream 503")}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	_, err := r.Resolve(context.Background(), "Autechre", "Tri Repetae")
	if err == nil || errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("expected hard failure, got %v", err)
	}
}

func TestMirrorFreshHitWritesThrough(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	key := ratings.NewKey("Boards of Canada", "Geogaddi")
	mc := &fakeMirror{rows: map[ratings.Key]*ratings.Record{
		key: {
			ArtistName:  "Boards of Canada",
			AlbumName:   "Geogaddi",
			Rating:      4.05,
			RatingCount: 41000,
			SourceURL:   "https://rateyourmusic.com/release/album/boards-of-canada/geogaddi/",
			ResolvedAt:  time.Now().UTC(),
		},
	}}
	r := fx.resolver(t, mc, ex)

	out, err := r.Resolve(context.Background(), "Boards of Canada", "Geogaddi")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.Source != resolver.SourceMirror {
		t.Fatalf("expected mirror outcome, got %+v", out)
	}
	if ex.callCount() != 0 {
		t.Fatal("mirror hit must not invoke the extractor")
	}

	stored, err := fx.st.Get(context.Background(), key)
	if err != nil || stored == nil {
		t.Fatalf("expected write-through to local store, got rec=%v err=%v", stored, err)
	}
}

func TestMirrorUnavailabilityFallsThrough(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	mc := &fakeMirror{err: mirror.ErrUnavailable}
	r := fx.resolver(t, mc, ex)

	out, err := r.Resolve(context.Background(), "Radiohead", "OK Computer")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.Source != resolver.SourceScraper {
		t.Fatalf("expected slow-path outcome, got %+v", out)
	}
}

func TestNegativeCacheSkipsRepeatLookups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cache.CacheNegative = true
	fx := fixture{st: testsupport.MustOpenStore(t, cfg), hub: broadcast.NewHub(8), cfg: cfg}
	ex := &fakeExtractor{err: scraper.ErrNoListing}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "Nobody", "Nothing"); !errors.Is(err, resolver.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if ex.callCount() != 1 {
		t.Fatalf("second lookup should hit the negative cache, extractor ran %d times", ex.callCount())
	}
}

func TestPersistFailureSurfacesAlongsideRecord(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	// A closed store fails both the read (degraded to miss) and the
	// write-back (surfaced on the outcome).
	_ = fx.st.Close()

	out, err := r.Resolve(context.Background(), "Radiohead", "OK Computer")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.Record == nil || out.PersistErr == nil {
		t.Fatalf("expected record with persist error, got %+v", out)
	}
}

func TestCloseReleasesWaiters(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord(), release: make(chan struct{})}
	r := resolver.New(fx.st, mirror.NewDisabled(), ex, fx.hub, fx.cfg, logging.NewNop())

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), "Radiohead", "OK Computer")
		errCh <- err
	}()

	deadline := time.After(2 * time.Second)
	for ex.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("extractor never invoked")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected waiter to be released with an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter left hanging after Close")
	}

	if _, err := r.Resolve(context.Background(), "a", "b"); !errors.Is(err, resolver.ErrClosed) {
		t.Fatalf("expected ErrClosed after shutdown, got %v", err)
	}
}

func TestCallerCancellationDoesNotAbortResolution(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord(), release: make(chan struct{})}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "Radiohead", "OK Computer")
		errCh <- err
	}()

	deadline := time.After(2 * time.Second)
	for ex.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("extractor never invoked")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see context error, got %v", err)
	}

	// The detached resolution still completes and writes back.
	close(ex.release)
	deadline = time.After(2 * time.Second)
	for {
		stored, err := fx.st.Get(context.Background(), ratings.NewKey("Radiohead", "OK Computer"))
		if err == nil && stored != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("detached resolution never persisted")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestManualMatchRekeysAndBroadcasts(t *testing.T) {
	fx := newFixture(t)
	ex := &fakeExtractor{rec: scrapedRecord()}
	r := fx.resolver(t, mirror.NewDisabled(), ex)

	var published []broadcast.Update
	cancel := fx.hub.Subscribe(func(u broadcast.Update) { published = append(published, u) })
	defer cancel()

	rec := scrapedRecord()
	rec.ArtistName = "Wrong Artist"
	rec.AlbumName = "Wrong Album"

	out, err := r.ManualMatch(context.Background(), "Right Artist", "Right Album", rec)
	if err != nil {
		t.Fatalf("ManualMatch returned error: %v", err)
	}
	if out.Source != resolver.SourceManual {
		t.Fatalf("unexpected source: %+v", out)
	}

	stored, err := fx.st.Get(context.Background(), ratings.NewKey("Right Artist", "Right Album"))
	if err != nil || stored == nil {
		t.Fatalf("expected record under target key, got rec=%v err=%v", stored, err)
	}
	if len(published) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(published))
	}
}
