package textutil

import (
	"regexp"
	"strings"
)

// episodeMarkerPatterns recognise season/episode noise embedded in a title.
var episodeMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i):\s*season\s*\d{1,2}\s*:.*$`),
	regexp.MustCompile(`(?i)\(\s*episode\s*\d{1,4}\s*\)`),
	regexp.MustCompile(`(?i)\bseason\s*\d{1,2}\s*[,.\-]?\s*episode\s*\d{1,4}\b`),
	regexp.MustCompile(`(?i)\bs\d{1,2}\s*e\d{1,4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}x\d{2,3}\b`),
	regexp.MustCompile(`(?i)\bseason\s*\d{1,2}\b`),
	regexp.MustCompile(`(?i)\bepisode\s*\d{1,4}\b`),
	regexp.MustCompile(`(?i)\bs\d{1,2}\b`),
}

var (
	parenYearPattern   = regexp.MustCompile(`\(\s*(\d{4})\s*\)`)
	emptyBracketsRegex = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	separatorRunRegex  = regexp.MustCompile(`\s*([\-–—|:])(?:\s*[\-–—|:])+\s*`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

const danglingSeparators = " \t-–—|:,_"

// ExtractBaseTitle strips season/episode markers and a parenthesised year from
// a media reference, collapses whitespace, and trims dangling separators.
// Applying it to its own output returns the output unchanged.
func ExtractBaseTitle(input string) string {
	current := cleanTitle(input)
	for {
		next := cleanTitle(current)
		if next == current {
			return current
		}
		current = next
	}
}

func cleanTitle(input string) string {
	out := input
	for _, pattern := range episodeMarkerPatterns {
		out = pattern.ReplaceAllString(out, " ")
	}
	out = parenYearPattern.ReplaceAllString(out, " ")
	out = emptyBracketsRegex.ReplaceAllString(out, " ")
	out = separatorRunRegex.ReplaceAllString(out, " $1 ")
	out = whitespaceRegex.ReplaceAllString(out, " ")
	return strings.Trim(out, danglingSeparators)
}

// HasEpisodeMarker reports whether input carries any recognised season or
// episode indicator.
func HasEpisodeMarker(input string) bool {
	for _, pattern := range episodeMarkerPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// ExtractYear returns the first parenthesised four-digit year in input.
func ExtractYear(input string) (int, bool) {
	match := parenYearPattern.FindStringSubmatch(input)
	if match == nil {
		return 0, false
	}
	year := 0
	for _, r := range match[1] {
		year = year*10 + int(r-'0')
	}
	return year, true
}
