// Package server exposes collection loading and album matching over a JSON
// HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/collection"
	"github.com/toozej/discogs2spotify/internal/match"
	"github.com/toozej/discogs2spotify/internal/types"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 5 * time.Second

	// RequestIDHeader carries the request ID, echoed back when the client
	// sets it and generated otherwise.
	RequestIDHeader = "X-Request-ID"
)

// AlbumMatcher matches records against Spotify.
type AlbumMatcher interface {
	BatchMatchWithCache(ctx context.Context, records []types.Record, token string, opts ...match.Option) ([]types.Record, error)
	Cached(artist, title string) (types.AlbumMatch, bool)
}

// CollectionLoader loads Discogs collections.
type CollectionLoader interface {
	Load(ctx context.Context, username, token string, mode collection.SyncMode, refresh bool, opts ...match.Option) (*collection.Result, error)
	Preload(ctx context.Context, username string) <-chan error
}

// Server serves the discogs2spotify HTTP API.
type Server struct {
	matcher     AlbumMatcher
	collections CollectionLoader
	discogs     types.CollectionFetcher
	store       cache.Store
	logger      *logrus.Logger
	now         func() time.Time
	mux         *http.ServeMux
}

// New creates a Server and registers its routes.
func New(matcher AlbumMatcher, collections CollectionLoader, discogs types.CollectionFetcher, store cache.Store, logger *logrus.Logger) *Server {
	s := &Server{
		matcher:     matcher,
		collections: collections,
		discogs:     discogs,
		store:       store,
		logger:      logger,
		now:         time.Now,
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/spotify/match", s.handleMatch)
	s.mux.HandleFunc("GET /api/spotify/match", s.handleMatchStatus)
	s.mux.HandleFunc("GET /api/discogs/collection/{username}", s.handleGetCollection)
	s.mux.HandleFunc("POST /api/discogs/collection/{username}", s.handleCollectionAction)
	s.mux.HandleFunc("GET /api/cache", s.handleCacheStats)
	s.mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	s.logger.WithFields(logrus.Fields{
		"component":  "http_server",
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     rec.status,
		"duration":   time.Since(start),
	}).Debug("Handled request")
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type matchRequest struct {
	Records []types.Record `json:"records"`
	Options struct {
		UseCache *bool `json:"useCache"`
	} `json:"options"`
}

type matchResponse struct {
	Success   bool             `json:"success"`
	Records   []types.Record   `json:"records"`
	Stats     types.MatchStats `json:"stats"`
	Timestamp time.Time        `json:"timestamp"`
	Cached    bool             `json:"cached"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, match.ErrMissingToken)
		return
	}

	var req matchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Records) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("records must be a non-empty array"))
		return
	}

	useCache := req.Options.UseCache == nil || *req.Options.UseCache
	var opts []match.Option
	if !useCache {
		opts = append(opts, match.WithFreshLookups())
	}

	records, err := s.matcher.BatchMatchWithCache(r.Context(), req.Records, token, opts...)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, matchResponse{
		Success:   true,
		Records:   records,
		Stats:     types.NewMatchStats(records),
		Timestamp: s.now().UTC(),
		Cached:    useCache,
	})
}

func (s *Server) handleMatchStatus(w http.ResponseWriter, r *http.Request) {
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))
	album := strings.TrimSpace(r.URL.Query().Get("album"))
	if artist == "" || album == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("artist and album are required"))
		return
	}

	found, cached := s.matcher.Cached(artist, album)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"artist":    artist,
		"album":     album,
		"cached":    cached,
		"spotifyId": found,
	})
}

type collectionResponse struct {
	Success bool `json:"success"`
	*collection.Result
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("username is required"))
		return
	}

	mode, err := collection.ParseSyncMode(r.URL.Query().Get("sync"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	refresh := r.URL.Query().Get("refresh") == "true"
	token, _ := bearerToken(r)

	result, err := s.collections.Load(r.Context(), username, token, mode, refresh)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, collectionResponse{Success: true, Result: result})
}

func (s *Server) handleCollectionAction(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PathValue("username"))

	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	switch req.Action {
	case "clear_cache":
		removed := s.discogs.ClearUserCache(username)
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"action":  req.Action,
			"removed": removed,
		})

	case "test_connection":
		connected := s.discogs.TestConnection(r.Context())
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"action":    req.Action,
			"connected": connected,
		})

	case "preload":
		s.collections.Preload(context.WithoutCancel(r.Context()), username)
		s.writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true,
			"action":  req.Action,
			"message": "preload started",
		})

	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"size":    stats.Size,
		"keys":    stats.Keys,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	var removed int
	if prefix == "" {
		removed = s.store.Stats().Size
		s.store.Clear()
	} else {
		removed = s.store.DeletePrefix(prefix)
	}

	s.logger.WithFields(logrus.Fields{
		"component": "http_server",
		"operation": "cache_clear",
		"prefix":    prefix,
		"removed":   removed,
	}).Info("Cache cleared")

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"prefix":  prefix,
		"removed": removed,
	})
}
