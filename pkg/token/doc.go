// Package token provides compact, signed tokens for embedding JSON payloads.
//
// Tokens use HMAC-SHA256 with truncated 8-byte signatures for balance between
// security and compactness. The session layer uses them to sign cookie values
// so a tampered cookie is rejected before any store lookup happens.
//
// Token format: base64url(payload).base64url(signature)
//
// Not recommended for high-value or long-lived credentials; the truncated
// signature trades cryptographic strength for size.
package token
