package browser

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/html"

	"rymbridge/internal/logging"
)

// Gate is the only path to the shared session. It serializes navigations and
// enforces a minimum interval between attempts so the upstream site sees at
// most one page load per interval regardless of caller concurrency.
type Gate struct {
	mu          sync.Mutex
	nav         Navigator
	interval    time.Duration
	lastAttempt time.Time
	logger      *slog.Logger

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate wraps a navigator with interval enforcement.
func NewGate(nav Navigator, interval time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		nav:      nav,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "gate"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate waits for its turn, then performs one navigation through the
// shared session. The interval clock advances on every committed attempt,
// including ones that fail, so a burst of errors cannot speed up traffic.
// Cancellation during the wait releases the caller without consuming a slot.
func (g *Gate) Navigate(ctx context.Context, url string) (*html.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := g.interval - g.now().Sub(g.lastAttempt); wait > 0 {
		g.logger.Debug("throttling navigation",
			logging.String("url", url),
			logging.Duration("wait", wait))
		if err := g.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	g.lastAttempt = g.now()
	doc, err := g.nav.Navigate(ctx, url)
	if err != nil {
		g.logger.Debug("navigation failed", logging.String("url", url), logging.Error(err))
		return nil, err
	}
	return doc, nil
}
