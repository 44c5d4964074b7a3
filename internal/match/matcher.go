// Package match attaches Spotify album IDs to Discogs records.
//
// Every lookup goes through the cache first. A cached "no album" is a
// definitive answer and is served without contacting Spotify. Network
// lookups are paced by a limiter shared by every caller of a Matcher, and
// concurrent lookups of the same release collapse into one request.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/search"
	"github.com/toozej/discogs2spotify/internal/types"
	"github.com/toozej/discogs2spotify/pkg/config"
)

// ErrMissingToken is returned when no Spotify access token is supplied.
var ErrMissingToken = errors.New("spotify access token is required")

const defaultProgressEvery = 10

// Matcher looks records up on Spotify through an expiring cache.
type Matcher struct {
	finder  types.AlbumFinder
	store   cache.Store
	limiter *rate.Limiter
	group   singleflight.Group
	logger  *logrus.Logger

	foundTTL      time.Duration
	notFoundTTL   time.Duration
	errorTTL      time.Duration
	progressEvery int
}

// NewMatcher creates a Matcher. Pacing and TTLs come from cfg.Match and
// cfg.Cache.
func NewMatcher(finder types.AlbumFinder, store cache.Store, cfg config.Config, logger *logrus.Logger) *Matcher {
	limit := rate.Inf
	if cfg.Match.RequestDelay > 0 {
		limit = rate.Every(cfg.Match.RequestDelay)
	}

	progressEvery := cfg.Match.ProgressEvery
	if progressEvery < 1 {
		progressEvery = defaultProgressEvery
	}

	return &Matcher{
		finder:        finder,
		store:         store,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger,
		foundTTL:      cfg.Cache.AlbumTTL,
		notFoundTTL:   cfg.Cache.NotFoundTTL,
		errorTTL:      cfg.Cache.ErrorTTL,
		progressEvery: progressEvery,
	}
}

// Option configures a single batch.
type Option func(*options)

type options struct {
	progress func(done, total int)
	fresh    bool
}

// WithProgress reports progress every few records and once at the end.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithFreshLookups bypasses cached matches. Results are still written back.
func WithFreshLookups() Option {
	return func(o *options) {
		o.fresh = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// albumKey derives the cache key for a release. Artist and title are
// normalized and lower-cased so cosmetic differences share an entry.
func albumKey(artist, title string) string {
	return cache.SpotifyAlbumKey(
		strings.ToLower(search.Normalize(artist)),
		strings.ToLower(search.Normalize(title)),
	)
}

// Cached returns the cached match for a release without touching the
// network. The boolean is false when nothing is cached.
func (m *Matcher) Cached(artist, title string) (types.AlbumMatch, bool) {
	var match types.AlbumMatch
	if !cache.GetJSON(m.store, albumKey(artist, title), &match) {
		return types.NoAlbum, false
	}
	return match, true
}

// SearchAlbum returns the Spotify album for a release.
//
// Lookup failures are not errors: they yield NoAlbum, cached briefly so the
// release is retried soon. An error is returned only for a missing token or
// when ctx ends first.
func (m *Matcher) SearchAlbum(ctx context.Context, artist, title, token string) (types.AlbumMatch, error) {
	return m.searchAlbum(ctx, artist, title, token, false)
}

func (m *Matcher) searchAlbum(ctx context.Context, artist, title, token string, fresh bool) (types.AlbumMatch, error) {
	if token == "" {
		return types.NoAlbum, ErrMissingToken
	}

	if !fresh {
		if match, ok := m.Cached(artist, title); ok {
			m.logger.WithFields(logrus.Fields{
				"component":  "matcher",
				"operation":  "search_album",
				"artist":     artist,
				"title":      title,
				"spotify_id": match.String(),
			}).Debug("Cache hit for Spotify album")
			return match, nil
		}
	}

	// The shared lookup outlives any single caller, so each waiter only
	// stops on its own ctx.
	key := albumKey(artist, title)
	ch := m.group.DoChan(key, func() (any, error) {
		return m.lookup(context.WithoutCancel(ctx), key, artist, title, token)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return types.NoAlbum, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return types.NoAlbum, res.Err
	}

	match, ok := res.Val.(types.AlbumMatch)
	if !ok {
		return types.NoAlbum, fmt.Errorf("unexpected result type from singleflight")
	}
	return match, nil
}

// lookup performs a paced network lookup and caches its outcome.
func (m *Matcher) lookup(ctx context.Context, key, artist, title, token string) (types.AlbumMatch, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return types.NoAlbum, fmt.Errorf("waiting to query spotify: %w", err)
	}

	fields := logrus.Fields{
		"component": "matcher",
		"operation": "lookup",
		"artist":    artist,
		"title":     title,
	}

	match, err := m.finder.FindAlbum(ctx, artist, title, token)
	if err != nil {
		m.logger.WithFields(fields).WithError(err).Warn("Spotify lookup failed, caching as not found")
		cache.SetJSON(m.store, key, types.NoAlbum, m.errorTTL)
		return types.NoAlbum, nil
	}

	ttl := m.notFoundTTL
	if match.Found() {
		ttl = m.foundTTL
	}
	cache.SetJSON(m.store, key, match, ttl)

	m.logger.WithFields(fields).WithField("spotify_id", match.String()).Debug("Cached Spotify match")
	return match, nil
}

// MatchOne returns a copy of record carrying its Spotify match.
func (m *Matcher) MatchOne(ctx context.Context, record types.Record, token string) (types.Record, error) {
	return m.matchOne(ctx, record, token, false)
}

func (m *Matcher) matchOne(ctx context.Context, record types.Record, token string, fresh bool) (types.Record, error) {
	if !record.IsValid() {
		m.logger.WithFields(logrus.Fields{
			"component": "matcher",
			"operation": "match_one",
			"record_id": record.ID,
		}).Warn("Skipping record without artist or title")
		return record, nil
	}

	match, err := m.searchAlbum(ctx, record.Artist, record.Title, token, fresh)
	if err != nil {
		return record, err
	}
	return record.WithSpotify(match), nil
}

// MatchAll matches records one after another and returns them in input
// order.
//
// A record that cannot be matched is logged and returned unchanged, and
// the batch moves on. When ctx ends the remaining records are returned
// unchanged together with the context error.
func (m *Matcher) MatchAll(ctx context.Context, records []types.Record, token string, opts ...Option) ([]types.Record, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	o := buildOptions(opts)
	return m.matchSequential(ctx, records, token, o, 0, len(records))
}

// matchSequential matches records in order. offset and total describe
// where this run sits in a larger batch for progress reporting.
func (m *Matcher) matchSequential(ctx context.Context, records []types.Record, token string, o options, offset, total int) ([]types.Record, error) {
	out := make([]types.Record, len(records))

	m.logger.WithFields(logrus.Fields{
		"component": "matcher",
		"operation": "match_all",
		"records":   len(records),
	}).Info("Starting Spotify matching")

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			copy(out[i:], records[i:])
			m.logger.WithFields(logrus.Fields{
				"component": "matcher",
				"operation": "match_all",
				"processed": i,
				"remaining": len(records) - i,
			}).WithError(err).Warn("Spotify matching interrupted")
			return out, err
		}

		matched, err := m.matchOne(ctx, record, token, o.fresh)
		switch {
		case err == nil:
			out[i] = matched
		case ctx.Err() != nil:
			copy(out[i:], records[i:])
			return out, ctx.Err()
		default:
			m.logger.WithFields(logrus.Fields{
				"component": "matcher",
				"operation": "match_all",
				"record_id": record.ID,
				"record":    record.String(),
			}).WithError(err).Warn("Error matching record, keeping it unmatched")
			out[i] = record
		}

		done := offset + i + 1
		if done%m.progressEvery == 0 || done == total {
			m.logger.WithFields(logrus.Fields{
				"component": "matcher",
				"operation": "match_all",
			}).Infof("Matched %d/%d records with Spotify", done, total)
			if o.progress != nil {
				o.progress(done, total)
			}
		}
	}

	stats := types.NewMatchStats(out)
	m.logger.WithFields(logrus.Fields{
		"component":  "matcher",
		"operation":  "match_all",
		"matched":    stats.Matched,
		"total":      stats.Total,
		"match_rate": stats.MatchRate,
	}).Info("Spotify matching complete")

	return out, nil
}

// BatchMatchWithCache serves cached records immediately and matches the
// rest with MatchAll, returning everything in input order.
func (m *Matcher) BatchMatchWithCache(ctx context.Context, records []types.Record, token string, opts ...Option) ([]types.Record, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	o := buildOptions(opts)
	out := make([]types.Record, len(records))
	pending := make([]int, 0, len(records))

	for i, record := range records {
		if !o.fresh && record.IsValid() {
			if match, ok := m.Cached(record.Artist, record.Title); ok {
				out[i] = record.WithSpotify(match)
				continue
			}
		}
		pending = append(pending, i)
	}

	hits := len(records) - len(pending)
	m.logger.WithFields(logrus.Fields{
		"component": "matcher",
		"operation": "batch_match",
		"cache_hit": hits,
		"fetching":  len(pending),
		"total":     len(records),
	}).Infof("Cache hits: %d/%d, fetching: %d", hits, len(records), len(pending))

	if len(pending) == 0 {
		if o.progress != nil && len(records) > 0 {
			o.progress(len(records), len(records))
		}
		return out, nil
	}

	uncached := make([]types.Record, len(pending))
	for j, idx := range pending {
		uncached[j] = records[idx]
	}

	matched, err := m.matchSequential(ctx, uncached, token, o, hits, len(records))
	for j, idx := range pending {
		out[idx] = matched[j]
	}
	return out, err
}

// ClearCache removes every cached Spotify lookup and returns how many
// entries were removed.
func (m *Matcher) ClearCache() int {
	n := m.store.DeletePrefix(cache.NamespaceSpotify)
	m.logger.WithFields(logrus.Fields{
		"component": "matcher",
		"operation": "clear_cache",
		"cleared":   n,
	}).Info("Cleared Spotify cache entries")
	return n
}
