// Package broadcast fans resolved ratings out to interested listeners.
//
// A resolution publishes its record exactly once regardless of how many
// callers were coalesced into it. In-process listeners get a callback;
// HTTP consumers drain a bounded sequence buffer via long-polling Fetch.
// Publishing the same rating for a key twice in a row delivers nothing the
// second time.
package broadcast
