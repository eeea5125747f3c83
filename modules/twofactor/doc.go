// Package twofactor manages TOTP-based two-factor authentication for user
// accounts: secret provisioning with QR enrollment, enrollment confirmation,
// login-time code verification, and disabling.
//
// Each user has at most one record. A freshly provisioned secret is pending
// (enabled=false) until the user proves possession of their authenticator by
// confirming a code; only then does login-time verification accept the
// account. Secrets are encrypted at rest and a per-record counter rejects
// replayed codes.
package twofactor
