// Package redis wires Redis connectivity: client construction from a
// connection URL with bounded retries, and a healthcheck closure for
// readiness probes. Sessions and rate limit buckets live in Redis so
// multiple service instances share state.
package redis
