// Package cmd provides command-line interface functionality for the discogs2spotify application.
//
// This package implements the root command and manages the command-line interface
// using the cobra library. It handles configuration, logging setup, and command
// execution for the discogs2spotify application.
//
// The package integrates with several components:
//   - Configuration management through pkg/config
//   - Collection loading and matching through internal/collection and internal/match
//   - The HTTP API through internal/server
//   - Manual pages through pkg/man
//   - Version information through pkg/version
//
// Example usage:
//
//	import cmd "github.com/toozej/discogs2spotify/cmd/discogs2spotify"
//
//	func main() {
//		cmd.Execute()
//	}
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/discogs2spotify/pkg/config"
	"github.com/toozej/discogs2spotify/pkg/man"
	"github.com/toozej/discogs2spotify/pkg/version"
)

// conf holds the application configuration loaded from environment variables.
// It is populated before any command runs and can be modified by command-line flags.
var (
	conf config.Config
	// debug controls the logging level for the application.
	// When true, debug-level logging is enabled through logrus.
	debug bool
)

// rootCmd defines the base command for the discogs2spotify CLI application.
// It supports persistent flags that are inherited by all subcommands.
var rootCmd = &cobra.Command{
	Use:              "discogs2spotify",
	Short:            "Match a Discogs collection to Spotify albums",
	Long:             `discogs2spotify is a command-line application that fetches a Discogs vinyl collection and attaches the best matching Spotify album to each record. Lookups are fuzzy, paced and cached so repeated runs are cheap.`,
	Args:             cobra.ExactArgs(0),
	PersistentPreRun: rootCmdPreRun,
	Run:              rootCmdRun,
}

// rootCmdRun is the main execution function for the root command.
// It logs a short usage hint.
func rootCmdRun(cmd *cobra.Command, args []string) {
	log.Info("Use 'discogs2spotify match <username>' to match a Discogs collection to Spotify")
	log.Info("Use 'discogs2spotify search <artist> <album>' to look up a single album")
	log.Info("Use 'discogs2spotify serve' to start the HTTP API")
}

// rootCmdPreRun performs setup operations before executing any command.
//
// It loads the configuration and configures the logging level based on the
// debug flag.
func rootCmdPreRun(cmd *cobra.Command, args []string) {
	// Load configuration
	conf = config.GetEnvVars()
	if debug {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute starts the command-line interface execution.
// This is the main entry point called from main.go to begin command processing.
//
// If command execution fails, it prints the error message to stdout and
// exits the program with status code 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

// init defines the persistent flags and registers the subcommands.
func init() {
	// create rootCmd-level flags
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug-level logging")

	// add sub-commands
	rootCmd.AddCommand(
		newMatchCmd(),
		newSearchCmd(),
		newServeCmd(),
		newCacheCmd(),
		newTokenCmd(),
		man.NewManCmd(),
		version.Command(),
	)
}
