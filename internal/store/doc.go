// Package store persists resolved album ratings in SQLite.
//
// One row per normalized (artist, album) key. Writes are whole-record upserts
// guarded so resolved_at never moves backwards, which keeps replayed or
// out-of-order resolutions from clobbering newer data. Reads return (nil, nil)
// on a miss so callers can distinguish absence from failure.
package store
