// Package cachesvc is the typed cache service on top of cachestore.
//
// Values are written with SetMany (or Set), read with GetMany (or Get), and
// memoised with GetOrSetWith. Every entry expires TTL(variant) after it was
// written; entries of versioned variants are also invalid once the process
// version changes. Expire and ExpireVariant invalidate logically by moving
// expires_at to now; rows are removed later by Store.Purge.
//
// GetOrSetWith does not serialise concurrent producers for the same key. Both
// run, both callers receive their own result, and the last write wins.
package cachesvc
