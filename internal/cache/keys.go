package cache

import (
	"net/url"
	"strconv"
	"strings"
)

// Key namespaces. Every key starts with exactly one of these, and every
// caller-supplied component is query-escaped, so keys built for different
// operations cannot collide.
const (
	NamespaceDiscogsCollection = "discogs:collection:"
	NamespaceDiscogsUser       = "discogs:user:"
	NamespaceDiscogsConnection = "discogs:connection:"
	NamespaceSpotifyAlbum      = "spotify:album:"
	NamespaceSpotifySearch     = "spotify:search:"
	NamespaceCollectionMatched = "collection:matched:"

	// NamespaceSpotify covers every Spotify lookup.
	NamespaceSpotify = "spotify:"
)

func escape(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.QueryEscape(p)
	}
	return strings.Join(escaped, ":")
}

// DiscogsCollectionKey is the full collection snapshot of a user.
func DiscogsCollectionKey(username string) string {
	return NamespaceDiscogsCollection + escape(username)
}

// DiscogsCollectionPageKey is a single page of a user's collection.
func DiscogsCollectionPageKey(username string, page int) string {
	return DiscogsCollectionKey(username) + ":page:" + strconv.Itoa(page)
}

// DiscogsUserKey holds a user's profile.
func DiscogsUserKey(username string) string {
	return NamespaceDiscogsUser + escape(username)
}

// DiscogsConnectionKey holds the result of the last identity check.
func DiscogsConnectionKey() string {
	return NamespaceDiscogsConnection + "test"
}

// SpotifyAlbumKey holds the album match for an artist/album pair. Callers
// pass normalized, lower-cased names.
func SpotifyAlbumKey(artist, album string) string {
	return NamespaceSpotifyAlbum + escape(artist, album)
}

// SpotifySearchKey holds the outcome of a free-text search.
func SpotifySearchKey(query string) string {
	return NamespaceSpotifySearch + escape(query)
}

// CollectionMatchedKey holds a user's collection after Spotify matching.
func CollectionMatchedKey(username string) string {
	return NamespaceCollectionMatched + escape(username)
}
