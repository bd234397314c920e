// Package throttle batches subscribe/unsubscribe requests so the feed
// sees at most one exchange-legal request per pool per flush period.
//
// Requests enter two unbounded pools and are drained on a fixed schedule.
// The pools growing while the connection is down is an accepted tradeoff:
// they are bounded only by process memory, never silently capped.
package throttle
