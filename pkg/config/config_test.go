package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_API_BASE_URL",
	"DISCOGS_API_BASE_URL",
	"DISCOGS_PER_PAGE",
	"CACHE_BACKEND",
	"CACHE_ERROR_TTL",
	"MATCH_REQUEST_DELAY",
	"SERVER_PORT",
}

// chdirTemp switches into a fresh temporary directory and clears the
// variables these tests touch.
func chdirTemp(t *testing.T) string {
	t.Helper()

	originalDir, err := os.Getwd()
	require.NoError(t, err, "Failed to get current directory")

	tmpDir := t.TempDir()
	require.NoError(t, os.Chdir(tmpDir), "Failed to change to temp directory")
	t.Cleanup(func() {
		assert.NoError(t, os.Chdir(originalDir), "Failed to restore original directory")
	})

	for _, key := range testEnvKeys {
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range testEnvKeys {
			os.Unsetenv(key)
		}
	})

	return tmpDir
}

func TestGetEnvVars(t *testing.T) {
	tests := []struct {
		name                 string
		mockEnv              map[string]string
		mockEnvFile          string
		expectSpotifyID      string
		expectDiscogsBaseURL string
	}{
		{
			name: "Valid environment variables",
			mockEnv: map[string]string{
				"SPOTIFY_CLIENT_ID":    "test-spotify-id",
				"DISCOGS_API_BASE_URL": "https://discogs.example.com",
			},
			expectSpotifyID:      "test-spotify-id",
			expectDiscogsBaseURL: "https://discogs.example.com",
		},
		{
			name:                 "Valid .env file",
			mockEnvFile:          "SPOTIFY_CLIENT_ID=test-env-spotify-id\nDISCOGS_API_BASE_URL=https://discogs-env.example.com\n",
			expectSpotifyID:      "test-env-spotify-id",
			expectDiscogsBaseURL: "https://discogs-env.example.com",
		},
		{
			name:                 "Defaults only",
			expectSpotifyID:      "",
			expectDiscogsBaseURL: "https://api.discogs.com",
		},
		{
			name: "Environment variable overrides .env file",
			mockEnv: map[string]string{
				"SPOTIFY_CLIENT_ID":    "env-spotify-id",
				"DISCOGS_API_BASE_URL": "https://discogs-override.example.com",
			},
			mockEnvFile:          "SPOTIFY_CLIENT_ID=file-spotify-id\nDISCOGS_API_BASE_URL=https://discogs-file.example.com\n",
			expectSpotifyID:      "env-spotify-id",
			expectDiscogsBaseURL: "https://discogs-override.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := chdirTemp(t)

			// Create .env file if applicable
			if tt.mockEnvFile != "" {
				envPath := filepath.Join(tmpDir, ".env")
				err := os.WriteFile(envPath, []byte(tt.mockEnvFile), 0600)
				require.NoError(t, err, "Failed to write mock .env file")
			}

			// Set mock environment variables (these should override .env file)
			for key, value := range tt.mockEnv {
				os.Setenv(key, value)
			}

			conf := GetEnvVars()

			assert.Equal(t, tt.expectSpotifyID, conf.Spotify.ClientID)
			assert.Equal(t, tt.expectDiscogsBaseURL, conf.Discogs.APIBaseURL)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	conf, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.spotify.com/v1/", conf.Spotify.APIBaseURL)
	assert.Equal(t, 100, conf.Discogs.PerPage)
	assert.Equal(t, time.Second, conf.Discogs.PageDelay)
	assert.Equal(t, CacheBackendMemory, conf.Cache.Backend)
	assert.Equal(t, 720*time.Hour, conf.Cache.AlbumTTL)
	assert.Equal(t, 168*time.Hour, conf.Cache.NotFoundTTL)
	assert.Equal(t, time.Minute, conf.Cache.ErrorTTL)
	assert.Equal(t, 100*time.Millisecond, conf.Match.RequestDelay)
	assert.Equal(t, 10, conf.Match.ProgressEvery)
	assert.Equal(t, "127.0.0.1:8080", conf.Server.Address())
}

func TestLoad_AppendsTrailingSlashToSpotifyURL(t *testing.T) {
	chdirTemp(t)
	os.Setenv("SPOTIFY_API_BASE_URL", "http://127.0.0.1:9999/v1")

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/v1/", conf.Spotify.APIBaseURL)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		expectErr error
	}{
		{
			name:      "port out of range",
			env:       map[string]string{"SERVER_PORT": "70000"},
			expectErr: ErrInvalidServerPort,
		},
		{
			name:      "page size too large",
			env:       map[string]string{"DISCOGS_PER_PAGE": "500"},
			expectErr: ErrInvalidDiscogsPerPage,
		},
		{
			name:      "unknown cache backend",
			env:       map[string]string{"CACHE_BACKEND": "memcached"},
			expectErr: ErrUnknownCacheBackend,
		},
		{
			name:      "error TTL not shorter than not-found TTL",
			env:       map[string]string{"CACHE_ERROR_TTL": "200h"},
			expectErr: ErrInvalidCacheTTLOrder,
		},
		{
			name:      "negative request delay",
			env:       map[string]string{"MATCH_REQUEST_DELAY": "-1s"},
			expectErr: ErrInvalidRequestDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for key, value := range tt.env {
				os.Setenv(key, value)
			}

			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectErr)
		})
	}
}

func TestGetTokenFilePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := SpotifyConfig{TokenFilePath: "~/tokens/spotify.json"}.GetTokenFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tokens", "spotify.json"), path)

	path, err = SpotifyConfig{}.GetTokenFilePath()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestServerAddress(t *testing.T) {
	assert.Equal(t, "0.0.0.0:9000", ServerConfig{Host: "0.0.0.0", Port: 9000}.Address())
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{}.Address())
}
