// Package browser owns the shared browsing session and the navigation gate
// that rate-limits it.
//
// All live page loads go through one Session (one cookie jar, one user agent)
// and one Gate. The Gate holds callers in a queue and spaces committed
// navigation attempts by a configured minimum interval, which keeps the
// process's traffic shape constant no matter how many lookups are in flight.
package browser
