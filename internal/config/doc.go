// Package config loads, normalizes, and validates mediatrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and MEDIATRACK_VERSION. The progress-update window under
// [cache] is the only cache lifetime taken from configuration; every other
// lifetime is fixed by the cache key definitions.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
