package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/discogs2spotify/internal/collection"
	"github.com/toozej/discogs2spotify/internal/match"
	"github.com/toozej/discogs2spotify/internal/types"
)

const spotifyAlbumURL = "https://open.spotify.com/album/"

// newMatchCmd creates the match command for matching a Discogs collection to Spotify.
func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <username>",
		Short: "Match a Discogs collection to Spotify albums",
		Long: `Fetch the Discogs collection of <username> and attach the best matching
Spotify album to each record. Records already matched on a previous run are
served from the cache; the remaining ones are searched one at a time.`,
		Args: cobra.ExactArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().StringP("sync", "s", string(collection.SyncMatched), "Sync mode: cached, fresh or matched")
	cmd.Flags().BoolP("refresh", "r", false, "Drop the cached collection before loading it")
	cmd.Flags().Bool("fresh-lookups", false, "Ignore cached Spotify matches and search every record again")
	cmd.Flags().StringP("filter", "f", "", "Only show records fuzzily matching this query")
	cmd.Flags().BoolP("unmatched", "u", false, "Only show records without a Spotify album")
	cmd.Flags().Bool("json", false, "Print the records as JSON")

	return cmd
}

// runMatch executes the match command.
func runMatch(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(args[0])
	syncFlag, _ := cmd.Flags().GetString("sync")
	refresh, _ := cmd.Flags().GetBool("refresh")
	freshLookups, _ := cmd.Flags().GetBool("fresh-lookups")
	filter, _ := cmd.Flags().GetString("filter")
	unmatchedOnly, _ := cmd.Flags().GetBool("unmatched")
	asJSON, _ := cmd.Flags().GetBool("json")

	mode, err := collection.ParseSyncMode(syncFlag)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc := initializeServices(conf)
	defer svc.Close()

	var token string
	if mode == collection.SyncMatched {
		token, err = svc.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get Spotify token: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"username": username,
		"sync":     mode,
		"refresh":  refresh,
	}).Info("Loading Discogs collection")

	out := cmd.OutOrStdout()
	opts := []match.Option{match.WithProgress(progressPrinter(cmd.ErrOrStderr()))}
	if freshLookups {
		opts = append(opts, match.WithFreshLookups())
	}

	result, err := svc.collections.Load(ctx, username, token, mode, refresh, opts...)
	if err != nil {
		return fmt.Errorf("failed to load collection for %s: %w", username, err)
	}

	records := collection.Filter(result.Records, filter)
	if unmatchedOnly {
		records = collection.Unmatched(records)
	}

	if asJSON {
		return printRecordsJSON(out, records)
	}
	printRecords(out, records)
	printSummary(out, result)
	return nil
}

// progressPrinter reports batch progress on w.
func progressPrinter(w io.Writer) func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(w, "🎵 Matched %d/%d records\n", done, total)
	}
}

// printRecords writes one line per record, with its Spotify link when matched.
func printRecords(w io.Writer, records []types.Record) {
	for i, r := range records {
		fmt.Fprintf(w, "%d. 💿 %s\n", i+1, r.String())
		if id, ok := r.Spotify.ID(); ok {
			fmt.Fprintf(w, "   ✅ %s%s\n", spotifyAlbumURL, id)
		} else {
			fmt.Fprintf(w, "   ❌ No Spotify album\n")
		}
	}
}

func printRecordsJSON(w io.Writer, records []types.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []types.Record{}
	}
	return enc.Encode(records)
}

// printSummary writes the collection totals.
func printSummary(w io.Writer, result *collection.Result) {
	stats := types.NewMatchStats(result.Records)

	fmt.Fprintf(w, "\n📊 Collection Summary:\n")
	fmt.Fprintf(w, "   • User: %s\n", result.Username)
	fmt.Fprintf(w, "   • Records: %d\n", result.Total)
	fmt.Fprintf(w, "   • Sync: %s\n", result.SyncType)
	if result.SyncType == collection.SyncMatched {
		fmt.Fprintf(w, "   • Matched: %d (%d%%)\n", stats.Matched, stats.MatchRate)
		fmt.Fprintf(w, "   • Unmatched: %d\n", stats.Unmatched)
	}
}
