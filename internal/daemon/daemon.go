package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"rymbridge/internal/api"
	"rymbridge/internal/broadcast"
	"rymbridge/internal/browser"
	"rymbridge/internal/config"
	"rymbridge/internal/logging"
	"rymbridge/internal/mirror"
	"rymbridge/internal/resolver"
	"rymbridge/internal/scraper"
	"rymbridge/internal/store"
)

// Daemon wires the rating engine together and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	hub      *broadcast.Hub
	resolver *resolver.Resolver
	api      *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open rating store: %w", err)
	}

	session, err := browser.NewSession(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create browsing session: %w", err)
	}
	gate := browser.NewGate(session, cfg.NavigationInterval(), logger)

	hub := broadcast.NewHub(256)
	mirrorClient := mirror.NewConfiguredClient(cfg, logger)
	rs := resolver.New(st, mirrorClient, scraper.New(gate, cfg, logger), hub, cfg, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "rymbridged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		hub:      hub,
		resolver: rs,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = api.NewServer(cfg.Paths.APIBind, rs, st, hub, d.Status, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another rymbridge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.store.Path()),
		logging.Bool("mirror", d.cfg.MirrorEnabled()))
	return nil
}

// Stop shuts down in dependency order: API first, then the resolver so every
// waiter is released, then background state.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	if err := d.resolver.Close(); err != nil {
		d.logger.Warn("resolver shutdown", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases all resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports current daemon diagnostics.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	count, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Warn("cache count unavailable", logging.Error(err))
	}
	return api.StatusResponse{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		CachedRatings: count,
		MirrorEnabled: d.cfg.MirrorEnabled(),
	}
}

// Resolver exposes the resolution coordinator for in-process callers.
func (d *Daemon) Resolver() *resolver.Resolver {
	return d.resolver
}

// Store exposes the rating store for in-process callers.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Hub exposes the broadcast hub for in-process listeners.
func (d *Daemon) Hub() *broadcast.Hub {
	return d.hub
}

// APIAddr reports the bound API address once started.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}
