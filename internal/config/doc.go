// Package config loads, normalizes, and validates SoundScout configuration
// from TOML files, applying defaults for unset values.
package config
