// Package search implements the text matching used to pair Discogs releases
// with Spotify albums: normalization of free-text names, an edit-distance
// similarity score and selection of the best search hit.
package search

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	bracketed     = regexp.MustCompile(`\[[^\]]*\]`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Normalize strips annotations and punctuation from an artist or album name
// so it can be used as a search key.
//
// Parenthesized and bracketed groups are removed, every rune that is not a
// letter, digit or whitespace becomes a space, whitespace runs collapse to a
// single space and the result is trimmed. Normalize is idempotent.
//
//	Normalize("Abbey Road (Remastered) [2019]") == "Abbey Road"
func Normalize(s string) string {
	s = parenthesized.ReplaceAllString(s, "")
	s = bracketed.ReplaceAllString(s, "")
	s = nonWord.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity returns a score in [0,1] derived from the Levenshtein distance
// between a and b, relative to the longer string. Two empty strings are
// identical. Comparison is case-sensitive; callers lower-case first.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}
