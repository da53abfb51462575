// Package resolver turns a free-form reference title into a catalog match.
//
// A Resolver strips season and year noise from the title, searches TMDB
// through the metadata_search cache variant, and hands the candidates to the
// matcher. Catalog requests are paced with a token bucket so bursts of cache
// misses do not trip TMDB's rate limits.
package resolver
