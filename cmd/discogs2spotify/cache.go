package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/toozej/discogs2spotify/internal/cache"
)

// newCacheCmd creates the cache command and its stats and clear subcommands.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the lookup cache",
		Long: `Inspect or clear cached Discogs and Spotify lookups. The in-memory backend
only lives as long as a single command, so these commands are mostly useful
with CACHE_BACKEND=redis.`,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("keys")
			store := cache.New(conf, appLogger())
			defer func() { _ = store.Close() }()
			printCacheStats(cmd.OutOrStdout(), store.Stats(), verbose)
			return nil
		},
	}
	statsCmd.Flags().BoolP("keys", "k", false, "List every cached key")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			store := cache.New(conf, appLogger())
			defer func() { _ = store.Close() }()
			removed := clearCache(store, prefix)
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d cache entries\n", removed)
			return nil
		},
	}
	clearCmd.Flags().String("prefix", "", fmt.Sprintf("Only remove keys with this prefix, e.g. %q", cache.NamespaceSpotify))

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// clearCache removes the entries under prefix, or everything when prefix is
// empty, and returns how many were removed.
func clearCache(store cache.Store, prefix string) int {
	if prefix != "" {
		return store.DeletePrefix(prefix)
	}
	removed := store.Stats().Size
	store.Clear()
	return removed
}

func printCacheStats(w io.Writer, stats cache.Stats, verbose bool) {
	fmt.Fprintf(w, "📦 Cached entries: %d\n", stats.Size)
	if !verbose {
		return
	}
	keys := append([]string(nil), stats.Keys...)
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "   • %s\n", k)
	}
}
