// Package session implements cookie-based sessions with opaque server-side
// tokens.
//
// The cookie carries an HMAC-signed wrapper around a random 256-bit token;
// the token is the key into a Store holding the session record. Forged or
// tampered cookies fail signature verification before any store lookup.
// Authentication always rotates the token to prevent session fixation.
//
// MemoryStore keeps sessions in process memory; RedisStore shares them
// between instances and delegates expiry to Redis TTLs.
package session
