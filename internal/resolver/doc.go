// Package resolver coordinates rating resolution across the lookup tiers.
//
// A resolution walks local store, shared mirror, then live extraction, and
// stops at the first fresh answer. Concurrent requests for the same
// normalized key coalesce into a single in-flight resolution whose outcome
// every waiter shares, so the expensive slow path runs at most once per key
// at a time. Resolutions run detached from the first caller's context;
// cancelling one waiter never aborts the work for the rest.
package resolver
