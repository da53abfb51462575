// Package cachestore persists cache entries in SQLite.
//
// The store knows nothing about key variants or value types: it upserts rows
// by their unique key, reads rows for a set of keys, and marks rows expired by
// id, key, or variant. Validity (expiry and version checks) is decided by the
// caller; expired rows stay on disk until Purge removes them.
package cachestore
