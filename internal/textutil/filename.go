package textutil

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	releaseTagPattern = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|576p|480p|4k|uhd|blu-?ray|bdrip|brrip|web-?dl|web-?rip|hdtv|dvdrip|remux|x26[45]|h\.?26[45]|hevc|av1|aac|dts|atmos|proper|repack)\b`)
	bareYearPattern   = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	bracketTagPattern = regexp.MustCompile(`\[[^\]]*\]`)
)

var mediaExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".m4v": {}, ".avi": {}, ".mov": {}, ".wmv": {},
	".ts": {}, ".webm": {}, ".mpg": {}, ".mpeg": {}, ".iso": {}, ".srt": {},
	".mka": {}, ".mp3": {}, ".flac": {}, ".m4a": {}, ".m4b": {}, ".epub": {},
}

// TitleFromFilename turns a media file path such as
// "/media/Breaking.Bad.S01E02.720p.mkv" into a reference title
// ("Breaking Bad S01e02"). Release tags after the title are dropped and a bare
// release year is parenthesised so ExtractBaseTitle and ExtractYear handle it.
func TitleFromFilename(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if _, ok := mediaExtensions[strings.ToLower(filepath.Ext(base))]; ok {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = bracketTagPattern.ReplaceAllString(base, " ")
	base = strings.NewReplacer(".", " ", "_", " ").Replace(base)

	if loc := releaseTagPattern.FindStringIndex(base); loc != nil {
		base = base[:loc[0]]
	}
	// The first year with a title in front of it is the release year, so
	// "1917 2019" keeps 1917 as the title.
	for _, loc := range bareYearPattern.FindAllStringSubmatchIndex(base, -1) {
		if strings.TrimSpace(base[:loc[0]]) == "" {
			continue
		}
		base = base[:loc[0]] + "(" + base[loc[2]:loc[3]] + ")" + base[loc[1]:]
		break
	}

	base = whitespaceRegex.ReplaceAllString(base, " ")
	base = strings.Trim(base, danglingSeparators)
	return cases.Title(language.Und).String(base)
}
