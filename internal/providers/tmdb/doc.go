// Package tmdb is the TMDB catalog client used to fetch match candidates.
//
// It exposes movie, TV, and multi search plus the /configuration snapshot.
// Search responses convert to matching.Candidate values with the release
// year parsed from the TMDB date fields and the lot taken from the endpoint
// or the multi-search media type.
package tmdb
