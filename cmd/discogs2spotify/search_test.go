package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toozej/discogs2spotify/internal/types"
)

func TestNewSearchCmd(t *testing.T) {
	cmd := newSearchCmd()

	assert.Equal(t, "search <artist> <album>", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.Error(t, cmd.Args(cmd, []string{"Pink Floyd"}))
	assert.NoError(t, cmd.Args(cmd, []string{"Pink Floyd", "The Wall"}))
	assert.NotNil(t, cmd.Flags().Lookup("no-cache"))
	assert.NotNil(t, cmd.Flags().Lookup("candidates"))
}

func TestRunSearch_EmptyArguments(t *testing.T) {
	err := runSearch(newSearchCmd(), []string{" ", "The Wall"})
	assert.EqualError(t, err, "artist and album cannot be empty")
}

func TestPrintSearchResult(t *testing.T) {
	tests := []struct {
		name     string
		found    types.AlbumMatch
		expected string
	}{
		{
			name:     "found",
			found:    types.FoundAlbum("wall"),
			expected: "✅ https://open.spotify.com/album/wall",
		},
		{
			name:     "not found",
			found:    types.NoAlbum,
			expected: "❌ No Spotify album found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSearchResult(&buf, "Pink Floyd", "The Wall", tt.found)
			assert.Contains(t, buf.String(), "🔍 Pink Floyd - The Wall")
			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestPrintCandidates(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "a", Name: "Greatest Hits", Artists: []string{"Someone Else"}},
		{ID: "b", Name: "The Wall", Artists: []string{"Pink Floyd"}, ReleaseDate: "1979-11-30"},
	}

	var buf bytes.Buffer
	printCandidates(&buf, hits, "Pink Floyd", "The Wall")

	out := buf.String()
	assert.Contains(t, out, "Found 2 candidate(s)")
	assert.Contains(t, out, "   1. Someone Else - Greatest Hits")
	assert.Contains(t, out, "👉 2. Pink Floyd - The Wall [1979-11-30]")
	assert.Contains(t, out, "artist: 1.00  album: 1.00  https://open.spotify.com/album/b")
}

func TestPrintCandidates_Empty(t *testing.T) {
	var buf bytes.Buffer
	printCandidates(&buf, nil, "Pink Floyd", "The Wall")
	assert.Equal(t, "No candidates found\n", buf.String())
}
