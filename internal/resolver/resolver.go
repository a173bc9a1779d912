package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rymbridge/internal/broadcast"
	"rymbridge/internal/config"
	"rymbridge/internal/logging"
	"rymbridge/internal/mirror"
	"rymbridge/internal/ratings"
	"rymbridge/internal/scraper"
	"rymbridge/internal/store"
)

// ErrNotFound reports that every tier was consulted and the album has no
// listing. It is a normal terminal outcome, not a failure.
var ErrNotFound = errors.New("no rating found")

// ErrClosed reports that the resolver has shut down.
var ErrClosed = errors.New("resolver closed")

// Source identifies which tier produced an outcome.
type Source string

const (
	SourceCache   Source = "cache"
	SourceMirror  Source = "mirror"
	SourceScraper Source = "scraper"
	SourceManual  Source = "manual"
)

// Outcome is the shared result of one resolution. Every caller coalesced into
// the same in-flight resolution receives the identical outcome.
type Outcome struct {
	Record *ratings.Record
	Source Source
	// Stale marks a degraded result: the slow path failed and the cached
	// record past its TTL was returned instead.
	Stale bool
	// PersistErr carries a local write failure that did not invalidate the
	// resolved record itself.
	PersistErr error
}

// Extractor is the slow path. Implemented by scraper.Scraper.
type Extractor interface {
	Lookup(ctx context.Context, artist, album string) (*ratings.Record, error)
}

// flight is one in-progress resolution. Followers block on done and read the
// outcome fields afterwards.
type flight struct {
	requestID string
	done      chan struct{}
	cancel    context.CancelFunc
	outcome   Outcome
	err       error
}

// Resolver coordinates the tiered lookup: local store, then mirror, then live
// extraction, with single-flight coalescing per normalized key.
type Resolver struct {
	store     *store.Store
	mirror    mirror.Client
	extractor Extractor
	hub       *broadcast.Hub
	logger    *slog.Logger

	cacheNegative bool
	negativeTTL   time.Duration
	mirrorTimeout time.Duration

	mu       sync.Mutex
	inflight map[ratings.Key]*flight
	negative map[ratings.Key]time.Time
	closed   bool

	now func() time.Time
}

// maxNegativeEntries bounds the in-memory negative cache.
const maxNegativeEntries = 1024

// New wires a resolver from its tiers.
func New(st *store.Store, mc mirror.Client, ex Extractor, hub *broadcast.Hub, cfg *config.Config, logger *slog.Logger) *Resolver {
	r := &Resolver{
		store:         st,
		mirror:        mc,
		extractor:     ex,
		hub:           hub,
		logger:        logging.NewComponentLogger(logger, "resolver"),
		inflight:      make(map[ratings.Key]*flight),
		negative:      make(map[ratings.Key]time.Time),
		now:           time.Now,
		mirrorTimeout: 10 * time.Second,
	}
	if cfg != nil {
		r.cacheNegative = cfg.Cache.CacheNegative
		r.negativeTTL = cfg.NegativeTTL()
		r.mirrorTimeout = cfg.MirrorTimeout()
	}
	return r
}

// Resolve returns the rating for (artist, album), consulting the local store,
// the mirror, and finally live extraction. Safe for concurrent use;
// concurrent calls for the same key share one resolution.
func (r *Resolver) Resolve(ctx context.Context, artist, album string) (Outcome, error) {
	key := ratings.NewKey(artist, album)
	if key.Artist == "" || key.Album == "" {
		return Outcome{}, fmt.Errorf("resolve: artist and album are required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	if r.cacheNegative {
		if expiry, ok := r.negative[key]; ok {
			if r.now().Before(expiry) {
				r.mu.Unlock()
				return Outcome{}, ErrNotFound
			}
			delete(r.negative, key)
		}
	}
	f, joined := r.inflight[key]
	if !joined {
		// The leader's resolution is detached from this caller's lifetime so
		// an early hangup cannot strand the followers.
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{
			requestID: uuid.NewString(),
			done:      make(chan struct{}),
			cancel:    cancel,
		}
		r.inflight[key] = f
		go r.run(runCtx, f, key, artist, album)
	}
	r.mu.Unlock()

	if joined {
		r.logger.Debug("joined in-flight resolution",
			logging.String("request_id", f.requestID),
			logging.String("key", key.String()))
	}

	select {
	case <-f.done:
		return f.outcome, f.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (r *Resolver) run(ctx context.Context, f *flight, key ratings.Key, artist, album string) {
	defer f.cancel()

	started := r.now()
	outcome, err := r.resolve(ctx, key, artist, album, f.requestID)

	r.mu.Lock()
	delete(r.inflight, key)
	if r.cacheNegative && errors.Is(err, ErrNotFound) {
		r.rememberNegativeLocked(key)
	}
	r.mu.Unlock()

	f.outcome = outcome
	f.err = err
	close(f.done)

	if err == nil && outcome.Record != nil {
		r.hub.Publish(outcome.Record)
	}

	attrs := []logging.Attr{
		logging.String("request_id", f.requestID),
		logging.String("key", key.String()),
		logging.Duration("elapsed", r.now().Sub(started)),
	}
	switch {
	case errors.Is(err, ErrNotFound):
		r.logger.Info("no listing", logging.Args(attrs...)...)
	case err != nil:
		r.logger.Warn("resolution failed", logging.Args(append(attrs, logging.Error(err))...)...)
	default:
		r.logger.Info("resolved",
			logging.Args(append(attrs,
				logging.String("source", string(outcome.Source)),
				logging.Bool("stale", outcome.Stale))...)...)
	}
}

func (r *Resolver) rememberNegativeLocked(key ratings.Key) {
	if len(r.negative) >= maxNegativeEntries {
		now := r.now()
		for k, expiry := range r.negative {
			if now.After(expiry) {
				delete(r.negative, k)
			}
		}
		if len(r.negative) >= maxNegativeEntries {
			return
		}
	}
	r.negative[key] = r.now().Add(r.negativeTTL)
}

func (r *Resolver) resolve(ctx context.Context, key ratings.Key, artist, album, requestID string) (Outcome, error) {
	now := r.now()

	// Fast path: local store. Read failures degrade to a miss.
	var candidate *ratings.Record
	cached, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("store read failed, treating as miss",
			logging.String("request_id", requestID),
			logging.Error(err))
	} else if cached != nil {
		if cached.Fresh(now) {
			return Outcome{Record: cached, Source: SourceCache}, nil
		}
		candidate = cached
	}

	// Medium path: shared mirror. Unavailability falls through silently.
	if r.mirror.Enabled() {
		mirrored, err := r.mirror.Get(ctx, key)
		switch {
		case err != nil:
			r.logger.Debug("mirror lookup unavailable",
				logging.String("request_id", requestID),
				logging.Error(err))
		case mirrored != nil && mirrored.Fresh(now):
			outcome := Outcome{Record: mirrored, Source: SourceMirror}
			if putErr := r.store.Put(ctx, mirrored); putErr != nil {
				r.logger.Warn("write-through of mirror hit failed",
					logging.String("request_id", requestID),
					logging.Error(putErr))
			}
			return outcome, nil
		case mirrored != nil:
			if candidate == nil || mirrored.ResolvedAt.After(candidate.ResolvedAt) {
				candidate = mirrored
			}
		}
	}

	// Slow path: live extraction through the gate.
	rec, err := r.extractor.Lookup(ctx, artist, album)
	if err != nil {
		if errors.Is(err, scraper.ErrNoListing) {
			if candidate != nil {
				return Outcome{Record: candidate, Source: SourceCache, Stale: true}, nil
			}
			return Outcome{}, ErrNotFound
		}
		if candidate != nil {
			r.logger.Warn("extraction failed, serving stale cache",
				logging.String("request_id", requestID),
				logging.Error(err))
			return Outcome{Record: candidate, Source: SourceCache, Stale: true}, nil
		}
		return Outcome{}, fmt.Errorf("extract rating: %w", err)
	}

	outcome := Outcome{Record: rec, Source: SourceScraper}
	if putErr := r.store.Put(ctx, rec); putErr != nil {
		outcome.PersistErr = putErr
	}
	mirror.PutAsync(r.mirror, r.logger, rec, r.mirrorTimeout)
	return outcome, nil
}

// ManualMatch re-keys a scraped record under a caller-chosen (artist, album),
// persists it, mirrors it best-effort, and broadcasts it. Used when the
// automatic first-result match picked the wrong listing.
func (r *Resolver) ManualMatch(ctx context.Context, targetArtist, targetAlbum string, rec *ratings.Record) (Outcome, error) {
	if rec == nil {
		return Outcome{}, errors.New("manual match: record is nil")
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	r.mu.Unlock()

	rekeyed := *rec
	rekeyed.ArtistName = targetArtist
	rekeyed.AlbumName = targetAlbum
	rekeyed.ResolvedAt = r.now().UTC()
	if err := rekeyed.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("manual match: %w", err)
	}

	outcome := Outcome{Record: &rekeyed, Source: SourceManual}
	if err := r.store.Put(ctx, &rekeyed); err != nil {
		outcome.PersistErr = err
	}
	mirror.PutAsync(r.mirror, r.logger, &rekeyed, r.mirrorTimeout)
	r.hub.Publish(&rekeyed)

	r.mu.Lock()
	delete(r.negative, rekeyed.Key())
	r.mu.Unlock()

	r.logger.Info("manual match recorded",
		logging.String("key", rekeyed.Key().String()),
		logging.String("url", rekeyed.SourceURL))
	return outcome, nil
}

// Close cancels all in-flight resolutions and releases their waiters. Resolve
// calls after Close fail with ErrClosed.
func (r *Resolver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	flights := make([]*flight, 0, len(r.inflight))
	for _, f := range r.inflight {
		flights = append(flights, f)
	}
	r.mu.Unlock()

	for _, f := range flights {
		f.cancel()
	}
	for _, f := range flights {
		<-f.done
	}
	return nil
}
