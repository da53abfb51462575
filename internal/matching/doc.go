// Package matching scores catalog search results against an ambiguous media
// reference and picks the most likely one.
//
// Scoring is a sum of independent contributions (title similarity, exact and
// punctuation-insensitive equality, result position, release year proximity,
// and kind consistency with any season/episode markers) followed by a penalty
// for tokens the candidate has that the reference lacks. The weights live in
// Policy; DefaultPolicy holds the tuned values and should not be changed
// without re-running the regression cases in this package.
//
// Selection is a linear scan that only replaces the incumbent on a strictly
// greater score, so ties go to the earliest candidate.
package matching
