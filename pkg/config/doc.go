// Package config loads typed configuration structs from environment variables.
//
// Each package in the application declares its own Config struct with `env`
// field tags. Load parses the environment into the struct exactly once per
// type and caches the result, so independent components can load their own
// configuration without coordinating startup order.
//
// A .env file in the working directory is loaded automatically if present,
// which keeps local development friction-free without affecting deployments.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
package config
