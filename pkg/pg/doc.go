// Package pg wires PostgreSQL connectivity: pgxpool connection establishment
// with linear-backoff retries, a healthcheck closure for readiness probes,
// goose schema migrations bridged to pgx, and helpers for classifying common
// PostgreSQL errors (not found, duplicate key, foreign key violation).
package pg
