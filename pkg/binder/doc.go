// Package binder decodes HTTP request payloads into typed structs with
// strict content-type checks and a body size cap.
package binder
