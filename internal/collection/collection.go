// Package collection loads Discogs collections, optionally matched against
// Spotify, and provides helpers for browsing them.
package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/match"
	"github.com/toozej/discogs2spotify/internal/types"
)

// SyncMode selects where a collection is loaded from.
type SyncMode string

const (
	// SyncCached serves the cached collection, fetching it when absent.
	SyncCached SyncMode = "cached"
	// SyncFresh drops the user's cache and refetches from Discogs.
	SyncFresh SyncMode = "fresh"
	// SyncMatched loads the collection and matches it against Spotify.
	SyncMatched SyncMode = "matched"
)

// ErrUnknownSyncMode is returned by ParseSyncMode for unsupported modes.
var ErrUnknownSyncMode = errors.New("unknown sync mode")

// ParseSyncMode converts s into a SyncMode. An empty string means SyncCached.
func ParseSyncMode(s string) (SyncMode, error) {
	switch SyncMode(s) {
	case "", SyncCached:
		return SyncCached, nil
	case SyncFresh, SyncMatched:
		return SyncMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSyncMode, s)
	}
}

// RecordMatcher attaches Spotify matches to records.
type RecordMatcher interface {
	BatchMatchWithCache(ctx context.Context, records []types.Record, token string, opts ...match.Option) ([]types.Record, error)
}

// Result is a loaded collection plus metadata describing how it was loaded.
type Result struct {
	Username     string         `json:"username"`
	Total        int            `json:"total"`
	SyncType     SyncMode       `json:"syncType"`
	Cached       bool           `json:"cached"`
	MatchedCount int            `json:"matchedCount"`
	Timestamp    time.Time      `json:"timestamp"`
	Records      []types.Record `json:"records"`
}

// Service loads collections through the cache.
type Service struct {
	discogs    types.CollectionFetcher
	matcher    RecordMatcher
	store      cache.Store
	matchedTTL time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewService creates a collection service.
func NewService(discogs types.CollectionFetcher, matcher RecordMatcher, store cache.Store, matchedTTL time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		discogs:    discogs,
		matcher:    matcher,
		store:      store,
		matchedTTL: matchedTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Load returns username's collection. refresh drops every cached entry for
// the user first. token is only needed for SyncMatched.
func (s *Service) Load(ctx context.Context, username, token string, mode SyncMode, refresh bool, opts ...match.Option) (*Result, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}

	fields := logrus.Fields{
		"component": "collection_service",
		"operation": "load",
		"username":  username,
		"sync":      string(mode),
		"refresh":   refresh,
	}

	if refresh {
		s.discogs.ClearUserCache(username)
	}

	var (
		records []types.Record
		err     error
	)

	switch mode {
	case SyncFresh:
		s.logger.WithFields(fields).Info("Fresh sync requested")
		s.discogs.ClearUserCache(username)
		records, err = s.discogs.GetCollection(ctx, username)

	case SyncMatched:
		records, err = s.loadMatched(ctx, username, token, fields, opts)

	case SyncCached, "":
		mode = SyncCached
		records, err = s.discogs.GetCollection(ctx, username)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSyncMode, mode)
	}

	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Failed to load collection")
		return nil, err
	}

	stats := types.NewMatchStats(records)
	return &Result{
		Username:     username,
		Total:        len(records),
		SyncType:     mode,
		Cached:       mode == SyncCached,
		MatchedCount: stats.Matched,
		Timestamp:    s.now().UTC(),
		Records:      records,
	}, nil
}

func (s *Service) loadMatched(ctx context.Context, username, token string, fields logrus.Fields, opts []match.Option) ([]types.Record, error) {
	if token == "" {
		return nil, match.ErrMissingToken
	}

	key := cache.CollectionMatchedKey(username)
	var cached []types.Record
	if cache.GetJSON(s.store, key, &cached) {
		s.logger.WithFields(fields).Info("Cache hit for matched collection")
		return cached, nil
	}

	s.logger.WithFields(fields).Info("Fetching and matching collection")
	records, err := s.discogs.GetCollection(ctx, username)
	if err != nil {
		return nil, err
	}

	matched, err := s.matcher.BatchMatchWithCache(ctx, records, token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to match collection for %s: %w", username, err)
	}

	cache.SetJSON(s.store, key, matched, s.matchedTTL)
	return matched, nil
}

// Preload fetches username's collection in the background so later loads
// are served from the cache. The returned channel yields the outcome.
func (s *Service) Preload(ctx context.Context, username string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := s.discogs.GetCollection(ctx, username)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"component": "collection_service",
				"operation": "preload",
				"username":  username,
			}).WithError(err).Error("Background preload failed")
		}
		done <- err
	}()
	return done
}
