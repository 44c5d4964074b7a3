package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/types"
	"github.com/toozej/discogs2spotify/pkg/config"
)

func createTestConfig(baseURL string) (config.DiscogsConfig, config.CacheConfig) {
	return config.DiscogsConfig{
			APIBaseURL:          baseURL,
			PersonalAccessToken: "pat",
			AppURL:              "https://example.com",
			HTTPTimeout:         5 * time.Second,
			PerPage:             2,
		}, config.CacheConfig{
			CollectionTTL: 24 * time.Hour,
			UserTTL:       time.Hour,
			ConnectionTTL: 5 * time.Minute,
		}
}

func createTestClient(t *testing.T, baseURL string) (*DiscogsAPIClient, *cache.MemoryStore) {
	t.Helper()

	store := cache.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	cfg, cacheCfg := createTestConfig(baseURL)
	client := NewDiscogsAPIClient(cfg, cacheCfg, store)

	// Set logger to error level to reduce test noise
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	client.logger = logger.WithField("component", "discogs_api_client")
	client.retryFactor = time.Millisecond

	return client, store
}

func release(instanceID int, artist, title string) map[string]any {
	return map[string]any{
		"id":          instanceID * 10,
		"instance_id": instanceID,
		"date_added":  "2024-01-01T00:00:00-08:00",
		"basic_information": map[string]any{
			"id":          instanceID * 10,
			"title":       title,
			"year":        1970,
			"cover_image": "https://img.example.com/" + strconv.Itoa(instanceID),
			"artists":     []map[string]any{{"id": 1, "name": artist}},
			"labels":      []map[string]any{{"id": 2, "name": "Label"}},
			"genres":      []string{"Jazz"},
			"styles":      []string{"Modal"},
		},
	}
}

// collectionServer serves a paginated collection of the given releases.
func collectionServer(t *testing.T, perPage int, releases []map[string]any, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		assert.Equal(t, "Discogs token=pat", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "discogs2spotify/"))
		assert.Equal(t, "added", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort_order"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages := (len(releases) + perPage - 1) / perPage
		start := (page - 1) * perPage
		end := min(start+perPage, len(releases))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pagination": map[string]any{"page": page, "pages": pages, "per_page": perPage, "items": len(releases)},
			"releases":   releases[start:end],
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewDiscogsAPIClient(t *testing.T) {
	tests := []struct {
		name     string
		config   config.DiscogsConfig
		validate func(*testing.T, *DiscogsAPIClient)
	}{
		{
			name: "valid configuration",
			config: config.DiscogsConfig{
				APIBaseURL:  "https://discogs.example.com/",
				HTTPTimeout: 10 * time.Second,
				PerPage:     50,
			},
			validate: func(t *testing.T, client *DiscogsAPIClient) {
				assert.Equal(t, "https://discogs.example.com", client.baseURL)
				assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
				assert.Equal(t, 50, client.perPage)
			},
		},
		{
			name:   "empty configuration uses defaults",
			config: config.DiscogsConfig{},
			validate: func(t *testing.T, client *DiscogsAPIClient) {
				assert.Equal(t, defaultBaseURL, client.baseURL)
				assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
				assert.Equal(t, defaultPerPage, client.perPage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewMemoryStore(0)
			defer store.Close()
			client := NewDiscogsAPIClient(tt.config, config.CacheConfig{}, store)
			tt.validate(t, client)
		})
	}
}

func TestGetCollection_AllPagesInOrder(t *testing.T) {
	var hits atomic.Int32
	releases := []map[string]any{
		release(1, "Miles Davis", "Kind of Blue"),
		release(2, "Pink Floyd", "The Wall"),
		release(3, "John Coltrane", "A Love Supreme"),
	}
	srv := collectionServer(t, 2, releases, &hits)
	client, store := createTestClient(t, srv.URL)

	records, err := client.GetCollection(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Kind of Blue", "The Wall", "A Love Supreme"},
		[]string{records[0].Title, records[1].Title, records[2].Title})
	assert.Equal(t, int32(2), hits.Load())

	// Served from the snapshot afterwards.
	again, err := client.GetCollection(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, records, again)
	assert.Equal(t, int32(2), hits.Load())

	assert.True(t, store.Has(cache.DiscogsCollectionKey("bob")))
	assert.True(t, store.Has(cache.DiscogsCollectionPageKey("bob", 1)))
	assert.True(t, store.Has(cache.DiscogsCollectionPageKey("bob", 2)))
}

func TestGetCollection_EmptyCollection(t *testing.T) {
	var hits atomic.Int32
	srv := collectionServer(t, 2, nil, &hits)
	client, _ := createTestClient(t, srv.URL)

	records, err := client.GetCollection(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestGetCollection_EmptyUsername(t *testing.T) {
	client, _ := createTestClient(t, "http://127.0.0.1:1")
	_, err := client.GetCollection(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestGetCollectionPage_StatusErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		notFound     bool
		unauthorized bool
	}{
		{name: "not found", status: http.StatusNotFound, notFound: true},
		{name: "unauthorized", status: http.StatusUnauthorized, unauthorized: true},
		{name: "forbidden", status: http.StatusForbidden, unauthorized: true},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			client, store := createTestClient(t, srv.URL)

			_, err := client.GetCollectionPage(context.Background(), "bob", 1)
			require.Error(t, err)
			assert.Equal(t, tt.notFound, IsNotFound(err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(err))
			assert.Equal(t, 0, store.Stats().Size, "errors are not cached")
		})
	}
}

func TestGetCollectionPage_RetriesBadGateway(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, `{"pagination":{"page":1,"pages":1},"releases":[]}`)
	}))
	defer srv.Close()
	client, _ := createTestClient(t, srv.URL)

	page, err := client.GetCollectionPage(context.Background(), "bob", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Pages)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetCollectionPage_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()
	client, _ := createTestClient(t, srv.URL)

	_, err := client.GetCollectionPage(context.Background(), "bob", 1)
	require.Error(t, err)
	assert.Equal(t, int32(defaultMaxRetries), hits.Load())
}

func TestGetCollectionPage_Paced(t *testing.T) {
	var hits atomic.Int32
	releases := []map[string]any{release(1, "a", "b"), release(2, "c", "d"), release(3, "e", "f")}
	srv := collectionServer(t, 1, releases, &hits)

	store := cache.NewMemoryStore(0)
	defer store.Close()
	cfg, cacheCfg := createTestConfig(srv.URL)
	cfg.PerPage = 1
	cfg.PageDelay = 40 * time.Millisecond
	client := NewDiscogsAPIClient(cfg, cacheCfg, store)

	start := time.Now()
	records, err := client.GetCollection(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestGetUser(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/users/bob", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"id":7,"username":"bob","num_collection":42}`)
	}))
	defer srv.Close()
	client, _ := createTestClient(t, srv.URL)

	for i := 0; i < 2; i++ {
		user, err := client.GetUser(context.Background(), "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
		assert.Equal(t, 42, user.NumCollection)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestTestConnection(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/oauth/identity", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"id":1,"username":"bob"}`)
	}))
	defer srv.Close()
	client, _ := createTestClient(t, srv.URL)

	assert.True(t, client.TestConnection(context.Background()))
	assert.True(t, client.TestConnection(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestTestConnection_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	client, store := createTestClient(t, srv.URL)

	assert.False(t, client.TestConnection(context.Background()))
	assert.True(t, store.Has(cache.DiscogsConnectionKey()))
}

func TestClearUserCache(t *testing.T) {
	client, store := createTestClient(t, "http://127.0.0.1:1")

	store.Set(cache.DiscogsCollectionKey("bob"), []byte("[]"), time.Hour)
	store.Set(cache.DiscogsCollectionPageKey("bob", 1), []byte("{}"), time.Hour)
	store.Set(cache.DiscogsCollectionPageKey("bob", 2), []byte("{}"), time.Hour)
	store.Set(cache.DiscogsUserKey("bob"), []byte("{}"), time.Hour)
	store.Set(cache.CollectionMatchedKey("bob"), []byte("[]"), time.Hour)
	store.Set(cache.DiscogsCollectionKey("bobby"), []byte("[]"), time.Hour)
	store.Set(cache.DiscogsCollectionPageKey("bobby", 1), []byte("{}"), time.Hour)

	assert.Equal(t, 5, client.ClearUserCache("bob"))
	assert.ElementsMatch(t, []string{
		cache.DiscogsCollectionKey("bobby"),
		cache.DiscogsCollectionPageKey("bobby", 1),
	}, store.Stats().Keys)
}

func TestTransformRelease(t *testing.T) {
	tests := []struct {
		name     string
		release  Release
		expected types.Record
	}{
		{
			name: "full release",
			release: Release{
				InstanceID: 123,
				BasicInformation: BasicInformation{
					ID:         456,
					Title:      "Kind of Blue",
					Year:       1959,
					CoverImage: "cover.jpg",
					Thumb:      "thumb.jpg",
					Artists:    []Entity{{Name: "Miles Davis"}, {Name: "John Coltrane"}},
					Labels:     []Entity{{Name: "Columbia"}, {Name: "Other"}},
					Genres:     []string{"Jazz"},
					Styles:     []string{"Modal", "Cool Jazz"},
				},
			},
			expected: types.Record{
				ID:         "123",
				Title:      "Kind of Blue",
				Artist:     "Miles Davis, John Coltrane",
				Year:       1959,
				CoverImage: "cover.jpg",
				DiscogsID:  "456",
				Genres:     []string{"Jazz", "Modal", "Cool Jazz"},
				Label:      "Columbia",
			},
		},
		{
			name: "sparse release falls back",
			release: Release{
				InstanceID: 1,
				BasicInformation: BasicInformation{
					ID:      2,
					Title:   "Untitled",
					Thumb:   "thumb.jpg",
					Artists: []Entity{{Name: "Unknown"}},
				},
			},
			expected: types.Record{
				ID:         "1",
				Title:      "Untitled",
				Artist:     "Unknown",
				CoverImage: "thumb.jpg",
				DiscogsID:  "2",
				Genres:     []string{},
				Label:      unknownLabel,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, transformRelease(tt.release))
		})
	}
}
