package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/search"
	"github.com/toozej/discogs2spotify/internal/types"
	"github.com/toozej/discogs2spotify/pkg/config"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1/"

// ErrEmptyToken is returned when a search is attempted without a bearer token.
var ErrEmptyToken = errors.New("spotify access token is empty")

// SearchClient looks Discogs releases up in the Spotify album catalog.
//
// A lookup first runs a field-scoped EXACT query and takes its first hit.
// Only when that yields nothing does it fall back to a BROAD free-text query
// whose hits are ranked with search.SelectBest. BROAD outcomes are cached
// when a store is configured.
type SearchClient struct {
	httpClient *http.Client
	baseURL    string
	store      cache.Store
	searchTTL  time.Duration
	logger     *logrus.Logger
}

// Option configures a SearchClient.
type Option func(*SearchClient)

// WithHTTPClient sets the base HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SearchClient) {
		s.httpClient = c
	}
}

// WithSearchCache caches BROAD search outcomes in store for ttl.
func WithSearchCache(store cache.Store, ttl time.Duration) Option {
	return func(s *SearchClient) {
		s.store = store
		s.searchTTL = ttl
	}
}

// NewSearchClient creates a search client for the configured API root.
func NewSearchClient(cfg config.SpotifyConfig, logger *logrus.Logger, opts ...Option) *SearchClient {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &SearchClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindAlbum returns the Spotify album ID that best corresponds to the given
// Discogs artist and title.
//
// A failed EXACT request counts as zero hits. The returned error is non-nil
// only when a request failed and no album was found, so callers can tell a
// confirmed miss from a transient one.
func (c *SearchClient) FindAlbum(ctx context.Context, artist, title, token string) (types.AlbumMatch, error) {
	if token == "" {
		return types.NoAlbum, ErrEmptyToken
	}

	cleanArtist := search.Normalize(artist)
	cleanTitle := search.Normalize(title)

	fields := logrus.Fields{
		"component": "spotify_client",
		"operation": "find_album",
		"artist":    artist,
		"title":     title,
	}

	exact := types.SearchQuery{Artist: cleanArtist, Album: cleanTitle, Strategy: types.StrategyExact}
	hits, exactErr := c.SearchAlbums(ctx, exact, token)
	if exactErr != nil {
		c.logger.WithFields(fields).WithError(exactErr).Warn("Exact Spotify search failed, trying broad search")
	}
	if len(hits) > 0 {
		c.logger.WithFields(fields).WithField("spotify_id", hits[0].ID).Debug("Exact search matched")
		return types.FoundAlbum(hits[0].ID), nil
	}
	if err := ctx.Err(); err != nil {
		return types.NoAlbum, err
	}

	broad := types.SearchQuery{Artist: cleanArtist, Album: cleanTitle, Strategy: types.StrategyBroad}
	match, err := c.findBroad(ctx, broad, token)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("Broad Spotify search failed")
		return types.NoAlbum, err
	}

	c.logger.WithFields(fields).WithField("spotify_id", match.String()).Debug("Broad search completed")
	return match, nil
}

func (c *SearchClient) findBroad(ctx context.Context, q types.SearchQuery, token string) (types.AlbumMatch, error) {
	key := cache.SpotifySearchKey(q.String() + " broad")
	if c.store != nil {
		var cached types.AlbumMatch
		if cache.GetJSON(c.store, key, &cached) {
			return cached, nil
		}
	}

	hits, err := c.SearchAlbums(ctx, q, token)
	if err != nil {
		return types.NoAlbum, fmt.Errorf("broad search: %w", err)
	}

	match := types.NoAlbum
	if best, ok := search.SelectBest(hits, q.Artist, q.Album); ok {
		match = types.FoundAlbum(best.ID)
	}

	if c.store != nil {
		cache.SetJSON(c.store, key, match, c.searchTTL)
	}
	return match, nil
}

// SearchAlbums runs a single album search and converts the results.
func (c *SearchClient) SearchAlbums(ctx context.Context, q types.SearchQuery, token string) ([]types.SearchHit, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	c.logger.WithFields(logrus.Fields{
		"component": "spotify_client",
		"operation": "search_albums",
		"query":     q.String(),
		"strategy":  q.Strategy.String(),
	}).Debug("Searching Spotify albums")

	results, err := c.api(ctx, token).Search(ctx, q.String(), spotify.SearchTypeAlbum, spotify.Limit(q.Limit()))
	if err != nil {
		return nil, fmt.Errorf("failed to search spotify for %q: %w", q.String(), err)
	}
	if results == nil || results.Albums == nil {
		return nil, nil
	}

	hits := make([]types.SearchHit, 0, len(results.Albums.Albums))
	for _, album := range results.Albums.Albums {
		hits = append(hits, toSearchHit(album))
	}
	return hits, nil
}

// api builds a library client that sends token as a bearer credential.
func (c *SearchClient) api(ctx context.Context, token string) *spotify.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	return spotify.New(httpClient, spotify.WithBaseURL(c.baseURL))
}

func toSearchHit(album spotify.SimpleAlbum) types.SearchHit {
	artists := make([]string, len(album.Artists))
	for i, a := range album.Artists {
		artists[i] = a.Name
	}

	images := make([]types.Image, len(album.Images))
	for i, img := range album.Images {
		images[i] = types.Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)}
	}

	return types.SearchHit{
		ID:          string(album.ID),
		Name:        album.Name,
		Artists:     artists,
		Images:      images,
		ReleaseDate: album.ReleaseDate,
		TotalTracks: int(album.TotalTracks),
	}
}
