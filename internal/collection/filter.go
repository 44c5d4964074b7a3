package collection

import (
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/unicode/norm"

	"github.com/toozej/discogs2spotify/internal/types"
)

// recordSource exposes records to fuzzy matching as folded
// "artist title label" strings.
type recordSource []types.Record

func (s recordSource) String(i int) string {
	r := s[i]
	return fold(r.Artist + " " + r.Title + " " + r.Label)
}

func (s recordSource) Len() int { return len(s) }

// fold lower-cases s and strips diacritics so "Björk" and "bjork" compare
// equal.
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// Filter returns the records that fuzzily match query, best match first.
// Ties keep collection order. An empty query returns records unchanged.
func Filter(records []types.Record, query string) []types.Record {
	query = fold(strings.TrimSpace(query))
	if query == "" {
		return records
	}

	matches := fuzzy.FindFrom(query, recordSource(records))
	out := make([]types.Record, len(matches))
	for i, m := range matches {
		out[i] = records[m.Index]
	}
	return out
}

// Unmatched returns the records without a Spotify album.
func Unmatched(records []types.Record) []types.Record {
	var out []types.Record
	for _, r := range records {
		if !r.Spotify.Found() {
			out = append(out, r)
		}
	}
	return out
}
