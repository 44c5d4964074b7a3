// Package cache provides the expiring key-value store that backs every
// external lookup made by discogs2spotify.
//
// A Store never reports failures to its callers: an unavailable backend or
// a corrupt entry behaves like a miss. Values are raw bytes; GetJSON and
// SetJSON wrap the common case of JSON-encoded payloads.
package cache

import (
	"encoding/json"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/toozej/discogs2spotify/pkg/config"
)

// Store is an expiring key-value cache.
type Store interface {
	// Get returns the value stored under key. Entries past their expiry are
	// removed and reported as absent.
	Get(key string) ([]byte, bool)
	// Set stores value under key for ttl.
	Set(key string, value []byte, ttl time.Duration)
	// Has reports whether a live entry exists for key.
	Has(key string) bool
	// Delete removes key and reports whether it was present.
	Delete(key string) bool
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(prefix string) int
	// Clear removes every entry.
	Clear()
	// Stats returns the number of entries and their keys.
	Stats() Stats

	io.Closer
}

// Stats describes the contents of a Store.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// GetJSON decodes the value stored under key into v. An entry that cannot
// be decoded is deleted and reported as a miss.
func GetJSON(s Store, key string, v any) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.WithError(err).WithField("key", key).Warn("Discarding corrupt cache entry")
		s.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key for ttl.
func SetJSON(s Store, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to encode cache entry")
		return
	}
	s.Set(key, data, ttl)
}

// New creates the Store selected by the configuration. A Redis backend that
// cannot be reached falls back to memory.
func New(cfg config.Config, logger *log.Logger) Store {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		store, err := NewRedisStore(RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Timeout:  cfg.Redis.Timeout,
			Logger:   logger,
		})
		if err == nil {
			logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis cache backend")
			return store
		}
		logger.WithError(err).Warn("Redis cache unavailable, falling back to in-memory cache")
	}

	return NewMemoryStore(cfg.Cache.CleanupInterval)
}
