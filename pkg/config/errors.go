package config

import "errors"

var (
	// ErrNilPointer is returned when a nil pointer is passed to Load.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")
	// ErrParsingConfig is returned when environment parsing fails.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
	// ErrConfigNotLoaded is returned when a config value is missing from the cache
	// after a load attempt, which indicates a concurrent load failure.
	ErrConfigNotLoaded = errors.New("config: configuration was not loaded")
)
