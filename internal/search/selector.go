package search

import (
	"strings"

	"github.com/toozej/discogs2spotify/internal/types"
)

// SimilarityThreshold is the score above which two names are considered
// close enough when neither contains the other.
const SimilarityThreshold = 0.7

// SelectBest picks the search hit that best corresponds to the target artist
// and album. It returns false only when hits is empty.
//
// The first hit, in input order, whose primary artist and album name both
// match the target wins. Hits that list no artist never qualify. When no hit
// qualifies the first hit is returned, so
// a non-empty input always yields a candidate.
func SelectBest(hits []types.SearchHit, targetArtist, targetAlbum string) (types.SearchHit, bool) {
	if len(hits) == 0 {
		return types.SearchHit{}, false
	}

	artist := strings.ToLower(targetArtist)
	album := strings.ToLower(targetAlbum)

	for _, hit := range hits {
		primary := hit.PrimaryArtist()
		if primary == "" {
			continue
		}
		if namesMatch(strings.ToLower(primary), artist) &&
			namesMatch(strings.ToLower(hit.Name), album) {
			return hit, true
		}
	}

	return hits[0], true
}

// namesMatch applies the symmetric containment rule, falling back to
// similarity. An empty name is contained in every other name.
func namesMatch(candidate, target string) bool {
	if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
		return true
	}
	return Similarity(candidate, target) > SimilarityThreshold
}
