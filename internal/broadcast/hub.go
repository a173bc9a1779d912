package broadcast

import (
	"context"
	"sync"
	"time"

	"rymbridge/internal/ratings"
)

// Update is one rating delivery: a resolved record plus its hub sequence.
type Update struct {
	Sequence  uint64          `json:"seq"`
	Timestamp time.Time       `json:"ts"`
	Record    *ratings.Record `json:"record"`
}

// Listener receives published updates. Callbacks for one listener arrive in
// publish order; ordering across listeners is unspecified.
type Listener func(Update)

// Hub fans resolved ratings out to callback listeners and stores recent
// updates in a bounded buffer that long-polling consumers drain by sequence.
type Hub struct {
	mu        sync.Mutex
	cond      *sync.Cond
	capacity  int
	buffer    []Update
	nextSeq   uint64
	listeners map[uint64]Listener
	nextID    uint64
	last      map[ratings.Key]*ratings.Record
}

// NewHub constructs a hub retaining up to capacity recent updates.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	h := &Hub{
		capacity:  capacity,
		listeners: make(map[uint64]Listener),
		last:      make(map[ratings.Key]*ratings.Record),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Subscribe registers a listener and returns its cancel function. Cancel is
// idempotent.
func (h *Hub) Subscribe(fn Listener) func() {
	if h == nil || fn == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers a record to every listener and appends it to the buffer.
// Delivery is suppressed when the immediately prior publish for the same key
// carried an identical rating, count, and source URL.
func (h *Hub) Publish(rec *ratings.Record) bool {
	if h == nil || rec == nil {
		return false
	}

	h.mu.Lock()
	key := rec.Key()
	if prev, ok := h.last[key]; ok && prev.Equal(rec) {
		h.mu.Unlock()
		return false
	}
	h.last[key] = rec

	h.nextSeq++
	update := Update{
		Sequence:  h.nextSeq,
		Timestamp: time.Now().UTC(),
		Record:    rec,
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, update)

	targets := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		targets = append(targets, fn)
	}
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, fn := range targets {
		fn(update)
	}
	return true
}

// Fetch returns buffered updates with sequence greater than since. When wait
// is true and nothing is buffered past since, Fetch blocks until an update
// arrives or the context ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Update, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		updates, next := h.snapshotLocked(since, limit)
		if len(updates) > 0 || !wait {
			return updates, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit updates without blocking.
func (h *Hub) Tail(limit int) ([]Update, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Update, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Update, uint64) {
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	startIdx := -1
	for i, update := range h.buffer {
		if update.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, h.nextSeq
	}
	end := startIdx + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]Update, end-startIdx)
	copy(out, h.buffer[startIdx:end])
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
