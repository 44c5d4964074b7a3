// Package main provides the entry point for the discogs2spotify application.
//
// discogs2spotify matches a Discogs vinyl collection to Spotify albums from
// the command line or over a JSON HTTP API.
package main

import cmd "github.com/toozej/discogs2spotify/cmd/discogs2spotify"

// main is the entry point of the discogs2spotify application.
// It delegates execution to the cmd package which handles all
// command-line interface functionality.
func main() {
	cmd.Execute()
}
