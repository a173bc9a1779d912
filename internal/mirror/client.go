package mirror

import (
	"context"
	"errors"

	"rymbridge/internal/ratings"
)

// ErrUnavailable reports that the mirror tier contributed nothing to a lookup,
// as opposed to a genuine absence which is (nil, nil).
var ErrUnavailable = errors.New("mirror unavailable")

// Client describes the remote rating mirror used as the middle lookup tier.
type Client interface {
	// Get fetches the mirrored record for a key. Returns (nil, nil) when the
	// mirror is reachable but holds no row, and ErrUnavailable when the tier
	// cannot answer.
	Get(ctx context.Context, key ratings.Key) (*ratings.Record, error)
	// Put upserts a record into the mirror.
	Put(ctx context.Context, rec *ratings.Record) error
	// Enabled reports whether the tier is configured at all.
	Enabled() bool
}

type disabledClient struct{}

func (disabledClient) Get(context.Context, ratings.Key) (*ratings.Record, error) {
	return nil, ErrUnavailable
}

func (disabledClient) Put(context.Context, *ratings.Record) error {
	return ErrUnavailable
}

func (disabledClient) Enabled() bool { return false }

// NewDisabled returns a client whose every call reports ErrUnavailable.
func NewDisabled() Client {
	return disabledClient{}
}
