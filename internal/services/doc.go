// Package services defines shared utilities consumed by the matching, cache and
// resolver packages.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so failures from the store,
//     the matcher and provider lookups can be classified uniformly by callers.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform.
package services
