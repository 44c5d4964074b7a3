package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/toozej/discogs2spotify/internal/api"
	"github.com/toozej/discogs2spotify/internal/cache"
	"github.com/toozej/discogs2spotify/internal/collection"
	"github.com/toozej/discogs2spotify/internal/match"
	"github.com/toozej/discogs2spotify/internal/spotify"
	"github.com/toozej/discogs2spotify/pkg/config"
)

// services bundles everything a command needs, built from one configuration.
type services struct {
	store       cache.Store
	tokens      *spotify.TokenProvider
	search      *spotify.SearchClient
	discogs     *api.DiscogsAPIClient
	matcher     *match.Matcher
	collections *collection.Service
}

// initializeServices creates and wires all services using configuration.
// This function is shared between the match, search and serve commands.
func initializeServices(cfg config.Config) *services {
	logger := appLogger()

	store := cache.New(cfg, logger)
	searchClient := spotify.NewSearchClient(cfg.Spotify, logger,
		spotify.WithSearchCache(store, cfg.Cache.SearchTTL))
	discogs := api.NewDiscogsAPIClient(cfg.Discogs, cfg.Cache, store)
	matcher := match.NewMatcher(searchClient, store, cfg, logger)

	return &services{
		store:       store,
		tokens:      spotify.NewTokenProvider(cfg.Spotify, logger),
		search:      searchClient,
		discogs:     discogs,
		matcher:     matcher,
		collections: collection.NewService(discogs, matcher, store, cfg.Cache.MatchedTTL, logger),
	}
}

// Close releases the cache backend.
func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close cache")
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// appLogger returns the logger shared by every command.
func appLogger() *log.Logger {
	return log.StandardLogger()
}
