package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

var unsafeFileChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFileName replaces the characters that are illegal in file names on
// common filesystems with an underscore.
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// CollapseWhitespace trims s and folds runs of whitespace into one space.
func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \n\t\r")
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Truncate shortens s to at most max runes, the last three of which become
// "..." when anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
