// Package textutil normalizes free-text media references before matching.
//
// A reference such as "Breaking Bad S01E01 (2008)" is reduced to its base
// title with ExtractBaseTitle, probed for season/episode markers with
// HasEpisodeMarker, and broken into comparison forms: TokenSet for overlap
// checks and NormalizeForExact for punctuation-insensitive equality.
//
// Every function accepts arbitrary input, including empty or non-alphanumeric
// strings, and never panics.
package textutil
