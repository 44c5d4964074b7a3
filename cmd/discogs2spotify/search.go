package cmd

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/discogs2spotify/internal/search"
	"github.com/toozej/discogs2spotify/internal/types"
)

// newSearchCmd creates the search command for looking up a single album on Spotify.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <artist> <album>",
		Short: "Look up a single album on Spotify",
		Long: `Search Spotify for one album using the same exact-then-broad strategy
used for whole collections. With --candidates the broad search results are
listed together with their similarity to the requested artist and album.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}

	cmd.Flags().Bool("no-cache", false, "Bypass the cache and query Spotify directly")
	cmd.Flags().BoolP("candidates", "c", false, "List broad search candidates with similarity scores")

	return cmd
}

// runSearch executes the search command.
func runSearch(cmd *cobra.Command, args []string) error {
	artist := strings.TrimSpace(args[0])
	album := strings.TrimSpace(args[1])
	if artist == "" || album == "" {
		return fmt.Errorf("artist and album cannot be empty")
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")
	showCandidates, _ := cmd.Flags().GetBool("candidates")

	ctx, cancel := signalContext()
	defer cancel()

	svc := initializeServices(conf)
	defer svc.Close()

	token, err := svc.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Spotify token: %w", err)
	}

	log.WithFields(log.Fields{
		"artist": artist,
		"album":  album,
	}).Info("Searching Spotify")

	out := cmd.OutOrStdout()

	if showCandidates {
		q := types.SearchQuery{
			Artist:   search.Normalize(artist),
			Album:    search.Normalize(album),
			Strategy: types.StrategyBroad,
		}
		hits, err := svc.search.SearchAlbums(ctx, q, token)
		if err != nil {
			return err
		}
		printCandidates(out, hits, q.Artist, q.Album)
		return nil
	}

	var found types.AlbumMatch
	if noCache {
		found, err = svc.search.FindAlbum(ctx, artist, album, token)
	} else {
		found, err = svc.matcher.SearchAlbum(ctx, artist, album, token)
	}
	if err != nil {
		return err
	}

	printSearchResult(out, artist, album, found)
	return nil
}

// printSearchResult displays the outcome of a single album lookup.
func printSearchResult(w io.Writer, artist, album string, found types.AlbumMatch) {
	fmt.Fprintf(w, "\n🔍 %s - %s\n", artist, album)
	if id, ok := found.ID(); ok {
		fmt.Fprintf(w, "   ✅ %s%s\n", spotifyAlbumURL, id)
		return
	}
	fmt.Fprintf(w, "   ❌ No Spotify album found\n")
}

// printCandidates lists search hits with their similarity to the target and
// marks the one the selector would pick.
func printCandidates(w io.Writer, hits []types.SearchHit, artist, album string) {
	if len(hits) == 0 {
		fmt.Fprintf(w, "No candidates found\n")
		return
	}

	best, _ := search.SelectBest(hits, artist, album)
	fmt.Fprintf(w, "Found %d candidate(s):\n\n", len(hits))

	for i, hit := range hits {
		marker := "  "
		if hit.ID == best.ID {
			marker = "👉"
		}
		fmt.Fprintf(w, "%s %d. %s - %s", marker, i+1, hit.PrimaryArtist(), hit.Name)
		if hit.ReleaseDate != "" {
			fmt.Fprintf(w, " [%s]", hit.ReleaseDate)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "      artist: %.2f  album: %.2f  %s%s\n",
			search.Similarity(strings.ToLower(hit.PrimaryArtist()), strings.ToLower(artist)),
			search.Similarity(strings.ToLower(hit.Name), strings.ToLower(album)),
			spotifyAlbumURL, hit.ID)
	}
}
