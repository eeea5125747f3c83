// Package account glues user identity to the feature modules: it resolves
// the authenticated user from the session cookie and mounts the account
// settings routes.
package account
