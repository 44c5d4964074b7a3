package cache

import (
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toozej/discogs2spotify/pkg/config"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONHelpers_RoundTrip(t *testing.T) {
	store, _ := newTestStore()
	defer store.Close()

	SetJSON(store, "k", payload{Name: "Kind of Blue", Count: 5}, time.Minute)

	var got payload
	require.True(t, GetJSON(store, "k", &got))
	assert.Equal(t, payload{Name: "Kind of Blue", Count: 5}, got)
}

func TestJSONHelpers_NullIsAHit(t *testing.T) {
	store, _ := newTestStore()
	defer store.Close()

	SetJSON(store, "k", nil, time.Minute)

	var got *payload
	assert.True(t, GetJSON(store, "k", &got))
	assert.Nil(t, got)
}

func TestGetJSON_CorruptEntryIsDeleted(t *testing.T) {
	store, _ := newTestStore()
	defer store.Close()

	store.Set("k", []byte("{not json"), time.Minute)

	var got payload
	assert.False(t, GetJSON(store, "k", &got))
	assert.False(t, store.Has("k"))
}

func TestGetJSON_Miss(t *testing.T) {
	store, _ := newTestStore()
	defer store.Close()

	var got payload
	assert.False(t, GetJSON(store, "missing", &got))
}

func TestNew_MemoryBackend(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	var cfg config.Config
	cfg.Cache.Backend = config.CacheBackendMemory

	store := New(cfg, logger)
	defer store.Close()

	assert.IsType(t, &MemoryStore{}, store)
}

func TestNew_UnreachableRedisFallsBackToMemory(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	var cfg config.Config
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.Timeout = 50 * time.Millisecond

	store := New(cfg, logger)
	defer store.Close()

	assert.IsType(t, &MemoryStore{}, store)
}
