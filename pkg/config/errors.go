// Package config provides error definitions for configuration-related errors.
package config

import "errors"

// Configuration validation errors
var (
	// ErrEnvPathTraversal is returned when the .env path escapes the working directory
	ErrEnvPathTraversal = errors.New(".env file path traversal detected")

	// ErrInvalidServerPort is returned when the server port is out of range
	ErrInvalidServerPort = errors.New("server port must be between 1 and 65535")

	// ErrMissingDiscogsAPIBaseURL is returned when the Discogs API URL is empty
	ErrMissingDiscogsAPIBaseURL = errors.New("discogs API base URL is required")

	// ErrInvalidDiscogsTimeout is returned when the Discogs HTTP timeout is not positive
	ErrInvalidDiscogsTimeout = errors.New("discogs HTTP timeout must be greater than 0")

	// ErrInvalidDiscogsPerPage is returned when the page size is outside 1-100
	ErrInvalidDiscogsPerPage = errors.New("discogs per-page must be between 1 and 100")

	// ErrMissingSpotifyAPIBaseURL is returned when the Spotify API URL is empty
	ErrMissingSpotifyAPIBaseURL = errors.New("spotify API base URL is required")

	// ErrUnknownCacheBackend is returned for a cache backend other than memory or redis
	ErrUnknownCacheBackend = errors.New("unknown cache backend")

	// ErrInvalidCacheTTLOrder is returned unless album TTL > not-found TTL > error TTL
	ErrInvalidCacheTTLOrder = errors.New("cache TTLs must satisfy album > not-found > error")

	// ErrInvalidRequestDelay is returned when the match request delay is negative
	ErrInvalidRequestDelay = errors.New("match request delay must not be negative")
)
