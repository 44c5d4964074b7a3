// Package api provides JSON API client functionality for the discogs2spotify application.
//
// This package contains the DiscogsAPIClient which is responsible for fetching
// a user's collection from the Discogs API and converting it into records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/types"
	"github.com/toozej/discogs2spotify/pkg/config"
	"github.com/toozej/discogs2spotify/pkg/useragent"
	"github.com/toozej/discogs2spotify/pkg/version"
)

const (
	defaultBaseURL     = "https://api.discogs.com"
	defaultPerPage     = 100
	defaultMaxRetries  = 3
	connectionFailTTL  = time.Minute
	unknownLabel       = "Unknown Label"
	defaultRetryFactor = 2 * time.Second
)

// ErrEmptyUsername is returned when a collection is requested without a username.
var ErrEmptyUsername = errors.New("discogs username is required")

// StatusError is returned when the Discogs API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("discogs API returned status %d: %s", e.StatusCode, e.Status)
}

// IsNotFound reports whether err is a Discogs 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a Discogs 401 or 403.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) &&
		(se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

// Release is a single entry of a collection folder.
type Release struct {
	ID               int              `json:"id"`
	InstanceID       int              `json:"instance_id"`
	DateAdded        string           `json:"date_added"`
	BasicInformation BasicInformation `json:"basic_information"`
}

// BasicInformation holds the release metadata embedded in a collection entry.
type BasicInformation struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	CoverImage string   `json:"cover_image"`
	Thumb      string   `json:"thumb"`
	Artists    []Entity `json:"artists"`
	Labels     []Entity `json:"labels"`
	Genres     []string `json:"genres"`
	Styles     []string `json:"styles"`
}

// Entity is a named Discogs object such as an artist or label.
type Entity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Pagination describes the position of a page within a collection.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// CollectionPage is one page of a user's collection.
type CollectionPage struct {
	Pagination Pagination `json:"pagination"`
	Releases   []Release  `json:"releases"`
}

// User is the public profile of a Discogs user.
type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ResourceURL    string `json:"resource_url"`
	NumCollection  int    `json:"num_collection"`
	NumWantlist    int    `json:"num_wantlist"`
	AvatarURL      string `json:"avatar_url"`
	RegisteredDate string `json:"registered"`
}

// DiscogsAPIClient handles fetching and caching of Discogs collection data.
type DiscogsAPIClient struct {
	baseURL    string
	token      string
	userAgent  string
	perPage    int
	httpClient *http.Client
	limiter    *rate.Limiter
	store      cache.Store
	logger     *log.Entry

	collectionTTL time.Duration
	userTTL       time.Duration
	connectionTTL time.Duration
	maxRetries    int
	retryFactor   time.Duration
}

// NewDiscogsAPIClient creates a new Discogs API client instance.
func NewDiscogsAPIClient(cfg config.DiscogsConfig, cacheCfg config.CacheConfig, store cache.Store) *DiscogsAPIClient {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	// Use HTTP timeout from config
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	return &DiscogsAPIClient{
		baseURL:       baseURL,
		token:         cfg.PersonalAccessToken,
		userAgent:     useragent.ForApp("discogs2spotify", version.Version, cfg.AppURL),
		perPage:       perPage,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(limit, 1),
		store:         store,
		logger:        log.WithField("component", "discogs_api_client"),
		collectionTTL: cacheCfg.CollectionTTL,
		userTTL:       cacheCfg.UserTTL,
		connectionTTL: cacheCfg.ConnectionTTL,
		maxRetries:    defaultMaxRetries,
		retryFactor:   defaultRetryFactor,
	}
}

// GetCollectionPage fetches one page of a user's collection, newest first.
func (c *DiscogsAPIClient) GetCollectionPage(ctx context.Context, username string, page int) (*CollectionPage, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}

	cacheKey := cache.DiscogsCollectionPageKey(username, page)
	var cached CollectionPage
	if cache.GetJSON(c.store, cacheKey, &cached) {
		c.logger.WithFields(log.Fields{"username": username, "page": page}).Debug("Cache hit for Discogs collection page")
		return &cached, nil
	}

	params := url.Values{
		"page":       {strconv.Itoa(page)},
		"per_page":   {strconv.Itoa(c.perPage)},
		"sort":       {"added"},
		"sort_order": {"desc"},
	}
	apiURL := fmt.Sprintf("%s/users/%s/collection/folders/0/releases?%s", c.baseURL, url.PathEscape(username), params.Encode())

	var collectionPage CollectionPage
	if err := c.getJSON(ctx, apiURL, &collectionPage); err != nil {
		return nil, fmt.Errorf("failed to fetch collection page %d for %s: %w", page, username, err)
	}

	cache.SetJSON(c.store, cacheKey, collectionPage, c.collectionTTL)
	c.logger.WithFields(log.Fields{
		"username": username,
		"page":     page,
		"pages":    collectionPage.Pagination.Pages,
		"releases": len(collectionPage.Releases),
	}).Debug("Cached Discogs collection page")

	return &collectionPage, nil
}

// GetCollection fetches every page of a user's collection and converts it
// into records. The complete snapshot is cached.
func (c *DiscogsAPIClient) GetCollection(ctx context.Context, username string) ([]types.Record, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}

	fullKey := cache.DiscogsCollectionKey(username)
	var cached []types.Record
	if cache.GetJSON(c.store, fullKey, &cached) {
		c.logger.WithField("username", username).Info("Cache hit for full Discogs collection")
		return cached, nil
	}

	var records []types.Record
	for page := 1; ; page++ {
		c.logger.WithFields(log.Fields{"username": username, "page": page}).Info("Fetching Discogs collection page")

		data, err := c.GetCollectionPage(ctx, username, page)
		if err != nil {
			return nil, err
		}

		for _, release := range data.Releases {
			records = append(records, transformRelease(release))
		}

		if page >= data.Pagination.Pages {
			break
		}
	}

	if records == nil {
		records = []types.Record{}
	}

	cache.SetJSON(c.store, fullKey, records, c.collectionTTL)
	c.logger.WithFields(log.Fields{
		"username": username,
		"records":  len(records),
	}).Info("Cached full Discogs collection")

	return records, nil
}

// GetUser fetches a user's public profile.
func (c *DiscogsAPIClient) GetUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}

	cacheKey := cache.DiscogsUserKey(username)
	var cached User
	if cache.GetJSON(c.store, cacheKey, &cached) {
		return &cached, nil
	}

	var user User
	apiURL := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(username))
	if err := c.getJSON(ctx, apiURL, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", username, err)
	}

	cache.SetJSON(c.store, cacheKey, user, c.userTTL)
	return &user, nil
}

// TestConnection checks that the configured token is accepted by Discogs.
// The outcome is cached, failures for a shorter time.
func (c *DiscogsAPIClient) TestConnection(ctx context.Context) bool {
	cacheKey := cache.DiscogsConnectionKey()
	var connected bool
	if cache.GetJSON(c.store, cacheKey, &connected) {
		return connected
	}

	var identity struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/oauth/identity", &identity); err != nil {
		c.logger.WithError(err).Warn("Discogs connection failed")
		cache.SetJSON(c.store, cacheKey, false, connectionFailTTL)
		return false
	}

	c.logger.WithField("username", identity.Username).Info("Discogs connection successful")
	cache.SetJSON(c.store, cacheKey, true, c.connectionTTL)
	return true
}

// ClearUserCache removes every cached entry belonging to username and
// returns how many entries were removed.
func (c *DiscogsAPIClient) ClearUserCache(username string) int {
	collectionKey := cache.DiscogsCollectionKey(username)

	removed := 0
	for _, key := range []string{
		collectionKey,
		cache.DiscogsUserKey(username),
		cache.CollectionMatchedKey(username),
	} {
		if c.store.Delete(key) {
			removed++
		}
	}
	removed += c.store.DeletePrefix(collectionKey + ":page:")

	c.logger.WithFields(log.Fields{
		"username": username,
		"removed":  removed,
	}).Info("Cleared cache for user")

	return removed
}

// getJSON performs a paced GET request and decodes the JSON response into v.
// 502 and 504 responses are retried with a linear backoff.
func (c *DiscogsAPIClient) getJSON(ctx context.Context, apiURL string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.token)
	}

	var resp *http.Response
	var requestDuration time.Duration

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		attemptStart := time.Now()
		resp, err = c.httpClient.Do(req) // #nosec G107 -- URL is built from the configured Discogs API base
		requestDuration = time.Since(attemptStart)

		if err == nil && resp.StatusCode != http.StatusBadGateway && resp.StatusCode != http.StatusGatewayTimeout {
			// Success or non-retryable error
			break
		}
		if ctx.Err() != nil {
			break
		}

		if attempt < c.maxRetries {
			if resp != nil {
				_ = resp.Body.Close()
			}

			waitTime := time.Duration(attempt) * c.retryFactor
			c.logger.WithFields(log.Fields{
				"attempt":     attempt,
				"max_retries": c.maxRetries,
				"wait_time":   waitTime,
				"error":       err,
				"status_code": statusCode(resp),
			}).Warn("API request failed, retrying...")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}

	if err != nil {
		c.logger.WithFields(log.Fields{
			"duration_ms": requestDuration.Milliseconds(),
			"error":       err.Error(),
		}).Error("API request failed")
		return fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(log.Fields{
			"status_code": resp.StatusCode,
			"status":      resp.Status,
			"duration_ms": requestDuration.Milliseconds(),
		}).Error("API returned non-200 status code")
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: apiURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}

	c.logger.WithFields(log.Fields{
		"url":         apiURL,
		"duration_ms": requestDuration.Milliseconds(),
	}).Debug("Successfully received API response")

	return nil
}

func statusCode(resp *http.Response) int {
	if resp != nil {
		return resp.StatusCode
	}
	return 0
}

// transformRelease converts a collection entry into a record.
func transformRelease(release Release) types.Record {
	basic := release.BasicInformation

	artists := make([]string, 0, len(basic.Artists))
	for _, a := range basic.Artists {
		artists = append(artists, strings.TrimSpace(a.Name))
	}

	coverImage := basic.CoverImage
	if coverImage == "" {
		coverImage = basic.Thumb
	}

	label := unknownLabel
	if len(basic.Labels) > 0 && basic.Labels[0].Name != "" {
		label = basic.Labels[0].Name
	}

	genres := make([]string, 0, len(basic.Genres)+len(basic.Styles))
	genres = append(genres, basic.Genres...)
	genres = append(genres, basic.Styles...)

	return types.Record{
		ID:         strconv.Itoa(release.InstanceID),
		Title:      strings.TrimSpace(basic.Title),
		Artist:     strings.Join(artists, ", "),
		Year:       basic.Year,
		CoverImage: coverImage,
		DiscogsID:  strconv.Itoa(basic.ID),
		Genres:     genres,
		Label:      label,
	}
}
