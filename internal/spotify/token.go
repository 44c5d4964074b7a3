package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/toozej/discogs2spotify/pkg/config"
)

// ErrNoCredentials is returned when no access token, stored token or client
// credentials are configured.
var ErrNoCredentials = errors.New("no spotify credentials configured: set SPOTIFY_ACCESS_TOKEN or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")

// TokenData represents the stored token information
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// TokenProvider supplies the bearer token used for album searches.
//
// Sources are tried in order: a configured access token, the stored token
// file, then the client credentials flow. Tokens obtained through client
// credentials are reused until they expire.
type TokenProvider struct {
	cfg      config.SpotifyConfig
	tokenURL string
	logger   *logrus.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewTokenProvider creates a token provider for the given configuration.
func NewTokenProvider(cfg config.SpotifyConfig, logger *logrus.Logger) *TokenProvider {
	return &TokenProvider{
		cfg:      cfg,
		tokenURL: spotifyauth.TokenURL,
		logger:   logger,
	}
}

// Token returns a bearer token.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.OAuthToken(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// OAuthToken returns the full token, including its expiry when known.
func (p *TokenProvider) OAuthToken(ctx context.Context) (*oauth2.Token, error) {
	if p.cfg.AccessToken != "" {
		return &oauth2.Token{AccessToken: p.cfg.AccessToken, TokenType: "Bearer"}, nil
	}

	if token, ok := p.storedToken(); ok {
		return token, nil
	}

	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}

	p.mu.Lock()
	if p.source == nil {
		cc := clientcredentials.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			TokenURL:     p.tokenURL,
		}
		// The source outlives this call, so it must not inherit its cancellation.
		p.source = cc.TokenSource(context.WithoutCancel(ctx))
	}
	source := p.source
	p.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"component": "spotify_token",
			"operation": "client_credentials",
		}).WithError(err).Error("Failed to obtain Spotify token")
		return nil, fmt.Errorf("failed to obtain spotify token via client credentials: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"component": "spotify_token",
		"operation": "client_credentials",
		"expiry":    token.Expiry,
	}).Debug("Obtained Spotify token via client credentials")

	return token, nil
}

// storedToken reads the token file and returns the token while it is still
// valid.
func (p *TokenProvider) storedToken() (*oauth2.Token, bool) {
	tokenFile, err := p.cfg.GetTokenFilePath()
	if err != nil {
		p.logger.WithError(err).Debug("Could not determine token file path")
		return nil, false
	}
	if tokenFile == "" {
		return nil, false
	}

	data, err := os.ReadFile(tokenFile) // #nosec G304 -- path comes from configuration
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.WithError(err).Debug("Failed to read token file")
		}
		return nil, false
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		p.logger.WithError(err).Debug("Failed to parse token file")
		return nil, false
	}

	token := &oauth2.Token{
		AccessToken:  tokenData.AccessToken,
		RefreshToken: tokenData.RefreshToken,
		TokenType:    tokenData.TokenType,
		Expiry:       tokenData.Expiry,
	}
	if !token.Valid() {
		p.logger.WithField("token_file", tokenFile).Debug("Stored token is expired")
		return nil, false
	}

	p.logger.WithField("token_file", tokenFile).Debug("Using stored Spotify token")
	return token, true
}

// SaveToken writes token to path in the format read by TokenProvider.
func SaveToken(path string, token *oauth2.Token) error {
	tokenData := TokenData{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic operation
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile) // Clean up temp file
		return fmt.Errorf("failed to rename token file: %w", err)
	}

	return nil
}
