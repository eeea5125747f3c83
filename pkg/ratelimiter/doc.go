// Package ratelimiter implements a token bucket rate limiter with pluggable
// storage backends and an HTTP middleware.
//
// The two-factor endpoints use it to bound code-guessing: a 6-digit TOTP code
// has a million possibilities, so an unthrottled attacker probing the verify
// endpoint would eventually land inside the tolerance window. Buckets are
// keyed per user so one account's attempts cannot exhaust another's budget.
//
// MemoryStore suits single-instance deployments and tests; RedisStore shares
// bucket state between instances using an atomic Lua script.
package ratelimiter
