package types

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// AlbumFinder defines the interface for looking a release up on Spotify
type AlbumFinder interface {
	FindAlbum(ctx context.Context, artist, title, token string) (AlbumMatch, error)
}

// CollectionFetcher defines the interface for Discogs collection operations
type CollectionFetcher interface {
	GetCollection(ctx context.Context, username string) ([]Record, error)
	ClearUserCache(username string) int
	TestConnection(ctx context.Context) bool
}

// Core data models

// Record represents a single release from a user's Discogs collection.
type Record struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Year       int        `json:"year"`
	CoverImage string     `json:"coverImage"`
	DiscogsID  string     `json:"discogsId"`
	Genres     []string   `json:"genres"`
	Label      string     `json:"label"`
	Spotify    AlbumMatch `json:"spotifyId"`
}

// IsValid checks if the record has the fields needed for matching
func (r Record) IsValid() bool {
	return r.Artist != "" && r.Title != ""
}

// String returns a string representation of the record
func (r Record) String() string {
	if r.Year > 0 {
		return fmt.Sprintf("%s - %s (%d)", r.Artist, r.Title, r.Year)
	}
	return fmt.Sprintf("%s - %s", r.Artist, r.Title)
}

// WithSpotify returns a copy of the record carrying the given match.
// The receiver is left untouched.
func (r Record) WithSpotify(m AlbumMatch) Record {
	out := r
	out.Genres = slices.Clone(r.Genres)
	out.Spotify = m
	return out
}

// AlbumMatch is the outcome of looking a record up on Spotify: either an
// album ID or no album at all. The zero value is NoAlbum.
type AlbumMatch struct {
	id string
}

// NoAlbum is the match for a record that has no Spotify album.
var NoAlbum = AlbumMatch{}

// FoundAlbum returns a match for the given Spotify album ID. An empty ID
// yields NoAlbum.
func FoundAlbum(id string) AlbumMatch {
	return AlbumMatch{id: id}
}

// ID returns the album ID and whether there is one.
func (m AlbumMatch) ID() (string, bool) {
	return m.id, m.id != ""
}

// Found reports whether the match carries an album ID.
func (m AlbumMatch) Found() bool {
	return m.id != ""
}

func (m AlbumMatch) String() string {
	if m.id == "" {
		return "not found"
	}
	return m.id
}

// MarshalJSON encodes the album ID, or null when there is none.
func (m AlbumMatch) MarshalJSON() ([]byte, error) {
	if m.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(m.id)
}

// UnmarshalJSON accepts an album ID string or null.
func (m *AlbumMatch) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		m.id = ""
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("album match must be a string or null: %w", err)
	}
	m.id = id
	return nil
}

// Strategy identifies how a Spotify search query is built.
type Strategy int

const (
	// StrategyExact is a field-scoped, quoted query.
	StrategyExact Strategy = iota
	// StrategyBroad is an unscoped fallback query.
	StrategyBroad
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyBroad:
		return "broad"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// SearchQuery is a normalized artist/album pair plus the strategy used to
// render it.
type SearchQuery struct {
	Artist   string
	Album    string
	Strategy Strategy
}

// String renders the query as sent in the q parameter.
func (q SearchQuery) String() string {
	if q.Strategy == StrategyExact {
		return fmt.Sprintf(`artist:"%s" album:"%s"`, q.Artist, q.Album)
	}
	return q.Artist + " " + q.Album
}

// Limit returns how many hits the strategy asks for.
func (q SearchQuery) Limit() int {
	if q.Strategy == StrategyExact {
		return 5
	}
	return 10
}

// Image is a piece of album artwork.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SearchHit is a Spotify album returned by a search request.
type SearchHit struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Images      []Image  `json:"images"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
}

// PrimaryArtist returns the first listed artist, or "" when there is none.
func (h SearchHit) PrimaryArtist() string {
	if len(h.Artists) == 0 {
		return ""
	}
	return h.Artists[0]
}

// MatchStats summarizes a matched batch of records.
type MatchStats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	MatchRate int `json:"matchRate"`
}

// NewMatchStats counts matched and unmatched records.
func NewMatchStats(records []Record) MatchStats {
	stats := MatchStats{Total: len(records)}
	for _, r := range records {
		if r.Spotify.Found() {
			stats.Matched++
		}
	}
	stats.Unmatched = stats.Total - stats.Matched
	if stats.Total > 0 {
		stats.MatchRate = int(math.Round(float64(stats.Matched) / float64(stats.Total) * 100))
	}
	return stats
}
