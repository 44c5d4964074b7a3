// Package config provides secure configuration management for the discogs2spotify application.
//
// This package handles loading configuration from environment variables and .env files
// with built-in security measures to prevent path traversal attacks. It uses the
// github.com/caarlos0/env library for environment variable parsing and
// github.com/joho/godotenv for .env file loading.
//
// The configuration loading follows a priority order:
//  1. Environment variables (highest priority)
//  2. .env file in current working directory
//  3. Default values (if any)
//
// Example usage:
//
//	import "github.com/toozej/discogs2spotify/pkg/config"
//
//	func main() {
//		conf := config.GetEnvVars()
//		fmt.Printf("Discogs API: %s\n", conf.Discogs.APIBaseURL)
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config represents the main application configuration with nested service configurations.
type Config struct {
	Spotify SpotifyConfig `envPrefix:"SPOTIFY_"`
	Discogs DiscogsConfig `envPrefix:"DISCOGS_"`
	Cache   CacheConfig   `envPrefix:"CACHE_"`
	Match   MatchConfig   `envPrefix:"MATCH_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Server  ServerConfig  `envPrefix:"SERVER_"`
}

// SpotifyConfig represents the configuration for Spotify API integration.
//
// Only album search is performed, so any valid bearer token works. The token
// is taken from AccessToken, then the token file, then the client
// credentials flow.
type SpotifyConfig struct {
	// ClientID is the Spotify application client ID.
	ClientID string `env:"CLIENT_ID"`

	// ClientSecret is the Spotify application client secret.
	ClientSecret string `env:"CLIENT_SECRET"` // #nosec G117 -- OAuth client secret, expected in config

	// AccessToken is a bearer token obtained elsewhere.
	AccessToken string `env:"ACCESS_TOKEN"` // #nosec G117 -- bearer token, expected in config

	// TokenFilePath is the path where a Spotify authentication token is stored.
	TokenFilePath string `env:"TOKEN_FILE_PATH" envDefault:"~/.config/discogs2spotify/spotify_token.json"`

	// APIBaseURL is the Spotify Web API root. It must end with a slash.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.spotify.com/v1/"`

	// HTTPTimeout is the timeout for a single search request.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// DiscogsConfig represents the configuration for Discogs API integration.
type DiscogsConfig struct {
	// APIBaseURL is the Discogs API root.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.discogs.com"`

	// PersonalAccessToken authenticates requests to the Discogs API.
	PersonalAccessToken string `env:"PERSONAL_ACCESS_TOKEN"` // #nosec G117 -- API token, expected in config

	// AppURL is advertised in the User-Agent header as required by Discogs.
	AppURL string `env:"APP_URL" envDefault:"http://127.0.0.1:8080"`

	// HTTPTimeout is the timeout for HTTP requests.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// PageDelay is the minimum spacing between collection page requests.
	PageDelay time.Duration `env:"PAGE_DELAY" envDefault:"1s"`

	// PerPage is the number of releases requested per collection page.
	PerPage int `env:"PER_PAGE" envDefault:"100"`
}

// CacheConfig represents cache backend selection and TTL tiers.
type CacheConfig struct {
	// Backend is either "memory" or "redis".
	Backend string `env:"BACKEND" envDefault:"memory"`

	// CleanupInterval is how often the memory backend sweeps expired entries.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	// AlbumTTL applies to a Spotify album that was found.
	AlbumTTL time.Duration `env:"ALBUM_TTL" envDefault:"720h"`

	// NotFoundTTL applies to a confirmed "no such album" judgement.
	NotFoundTTL time.Duration `env:"NOT_FOUND_TTL" envDefault:"168h"`

	// ErrorTTL applies to lookups that failed, so they are retried soon.
	ErrorTTL time.Duration `env:"ERROR_TTL" envDefault:"60s"`

	// SearchTTL applies to broad Spotify search outcomes.
	SearchTTL time.Duration `env:"SEARCH_TTL" envDefault:"168h"`

	// CollectionTTL applies to Discogs collection pages and snapshots.
	CollectionTTL time.Duration `env:"COLLECTION_TTL" envDefault:"24h"`

	// MatchedTTL applies to collections already matched against Spotify.
	MatchedTTL time.Duration `env:"MATCHED_TTL" envDefault:"24h"`

	// UserTTL applies to Discogs user profiles.
	UserTTL time.Duration `env:"USER_TTL" envDefault:"1h"`

	// ConnectionTTL applies to a successful Discogs identity check.
	ConnectionTTL time.Duration `env:"CONNECTION_TTL" envDefault:"5m"`
}

// MatchConfig represents batch matching behavior.
type MatchConfig struct {
	// RequestDelay is the minimum spacing between Spotify lookups.
	RequestDelay time.Duration `env:"REQUEST_DELAY" envDefault:"100ms"`

	// ProgressEvery controls how often batch progress is reported.
	ProgressEvery int `env:"PROGRESS_EVERY" envDefault:"10"`
}

// RedisConfig represents the optional Redis cache backend.
type RedisConfig struct {
	Addr     string        `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password string        `env:"PASSWORD"` // #nosec G117 -- redis password, expected in config
	DB       int           `env:"DB" envDefault:"0"`
	Prefix   string        `env:"PREFIX" envDefault:"discogs2spotify"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"1s"`
}

// ServerConfig represents the server configuration.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8080"`
}

// Load reads the .env file in the current directory, if any, and parses
// the environment into a validated Config.
func Load() (Config, error) {
	// Get current working directory for secure file operations
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("error getting current working directory: %w", err)
	}

	// Construct secure path for .env file within current directory
	envPath := filepath.Join(cwd, ".env")

	// Ensure the path is within our expected directory (prevent traversal)
	cleanEnvPath, err := filepath.Abs(envPath)
	if err != nil {
		return Config{}, fmt.Errorf("error resolving .env file path: %w", err)
	}
	cleanCwd, err := filepath.Abs(cwd)
	if err != nil {
		return Config{}, fmt.Errorf("error resolving current directory: %w", err)
	}
	relPath, err := filepath.Rel(cleanCwd, cleanEnvPath)
	if err != nil || strings.Contains(relPath, "..") {
		return Config{}, ErrEnvPathTraversal
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// Parse environment variables into config struct
	var conf Config
	if err := env.Parse(&conf); err != nil {
		return Config{}, fmt.Errorf("error parsing configuration from environment: %w", err)
	}

	if err := validateConfig(&conf); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// GetEnvVars loads and returns the application configuration from environment
// variables and .env files.
//
// The function will terminate the program with os.Exit(1) if any critical
// errors occur during configuration loading, such as:
//   - Current directory access failures
//   - Path traversal attempts detected
//   - .env file parsing errors
//   - Environment variable parsing failures
//   - Configuration validation errors
func GetEnvVars() Config {
	conf, err := Load()
	if err != nil {
		fmt.Printf("Configuration error: %s\n", err)
		fmt.Println("Please check your configuration and try again.")
		os.Exit(1)
	}
	return conf
}

// Address returns the server address
func (s ServerConfig) Address() string {
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetTokenFilePath returns the resolved token file path, handling tilde expansion.
func (s SpotifyConfig) GetTokenFilePath() (string, error) {
	tokenPath := s.TokenFilePath
	if tokenPath == "" {
		return "", nil
	}

	// Handle tilde expansion
	if strings.HasPrefix(tokenPath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		tokenPath = filepath.Join(homeDir, tokenPath[2:])
	}

	absPath, err := filepath.Abs(tokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return absPath, nil
}

// validateConfig validates the configuration
func validateConfig(conf *Config) error {
	var errs []error

	if conf.Server.Port < 1 || conf.Server.Port > 65535 {
		errs = append(errs, ErrInvalidServerPort)
	}

	if conf.Discogs.APIBaseURL == "" {
		errs = append(errs, ErrMissingDiscogsAPIBaseURL)
	}
	if conf.Discogs.HTTPTimeout <= 0 {
		errs = append(errs, ErrInvalidDiscogsTimeout)
	}
	if conf.Discogs.PerPage < 1 || conf.Discogs.PerPage > 100 {
		errs = append(errs, ErrInvalidDiscogsPerPage)
	}

	if conf.Spotify.APIBaseURL == "" {
		errs = append(errs, ErrMissingSpotifyAPIBaseURL)
	} else if !strings.HasSuffix(conf.Spotify.APIBaseURL, "/") {
		conf.Spotify.APIBaseURL += "/"
	}

	switch conf.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCacheBackend, conf.Cache.Backend))
	}
	if conf.Cache.AlbumTTL <= conf.Cache.NotFoundTTL || conf.Cache.NotFoundTTL <= conf.Cache.ErrorTTL {
		errs = append(errs, ErrInvalidCacheTTLOrder)
	}

	if conf.Match.RequestDelay < 0 {
		errs = append(errs, ErrInvalidRequestDelay)
	}
	if conf.Match.ProgressEvery < 1 {
		conf.Match.ProgressEvery = 10
	}

	// Missing credentials only warn; they are needed for some commands only
	if conf.Discogs.PersonalAccessToken == "" {
		fmt.Println("Warning: DISCOGS_PERSONAL_ACCESS_TOKEN is not set. Collection requests will be unauthenticated.")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}

	return nil
}
