// Package config loads, normalizes, and validates sup2pgm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts) and reads TOML files from --config, ~/.config/sup2pgm/config.toml
// or ./sup2pgm.toml. Command-line flags are applied on top by the caller.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
