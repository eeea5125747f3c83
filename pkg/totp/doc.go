// Package totp implements RFC 4226/6238 time-based one-time passwords.
//
// The package is pure computation: secret generation, provisioning URI
// construction, code generation for a given time, and windowed validation.
// Validation accepts codes from the previous, current and next 30-second
// step to compensate for clock skew between server and authenticator app,
// and supports a last-used-counter replay guard so that an intercepted code
// cannot be submitted a second time inside the tolerance window.
//
// All timestamps are explicit parameters; nothing here reads the wall clock,
// which keeps the window boundary behavior directly testable.
package totp
