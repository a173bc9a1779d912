// Package mirror talks to the optional shared rating mirror, a REST endpoint
// holding rows other installations have already resolved.
//
// The mirror is a best-effort tier: reads that cannot be answered report
// ErrUnavailable so the coordinator can fall through to live extraction, and
// writes are fire-and-forget. An unconfigured mirror yields a disabled client
// rather than a nil one, so callers never branch on configuration.
package mirror
