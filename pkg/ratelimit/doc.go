// Package ratelimit implements distributed fixed-window admission
// control over a shared Redis counter store.
//
// One counter exists per client key per window; the first hit creates
// the counter with a TTL of the window length and Redis expiry retires
// it. Counting correctness rests entirely on Redis INCR being atomic;
// there is no in-process state to race on.
//
// The limiter fails open: if the store is unreachable the request is
// admitted and the reported quota is the configured maximum.
// Availability is prioritized over strict enforcement when the
// dependency is down.
package ratelimit
