// Package httpserver wraps net/http.Server with graceful shutdown on context
// cancellation or SIGINT/SIGTERM, functional options, env-driven configuration,
// and a dependency-aggregating healthcheck handler.
package httpserver
