// Package core holds the shared HTTP response types used across modules:
// the Response interface, JSON rendering helpers and the HTTPError taxonomy
// that maps domain failures to transport codes and stable error keys.
package core
