package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/discogs2spotify/internal/server"
)

// newServeCmd creates the serve command that runs the HTTP API.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching HTTP API",
		Long: `Start the JSON HTTP API for loading Discogs collections and matching
them to Spotify. Clients pass their Spotify access token as a bearer token.
The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("host", "", "Address to listen on (overrides SERVER_HOST)")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides SERVER_PORT)")
	cmd.Flags().Bool("preload-check", true, "Check the Discogs connection on startup")

	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	check, _ := cmd.Flags().GetBool("preload-check")

	ctx, cancel := signalContext()
	defer cancel()

	svc := initializeServices(conf)
	defer svc.Close()

	if check && !svc.discogs.TestConnection(ctx) {
		log.Warn("Discogs connection check failed; collection requests may fail")
	}

	srv := server.New(svc.matcher, svc.collections, svc.discogs, svc.store, log.StandardLogger())
	return srv.ListenAndServe(ctx, listenAddress(host, port))
}

// listenAddress applies the flag overrides to the configured server address.
func listenAddress(host string, port int) string {
	addr := conf.Server
	if host != "" {
		addr.Host = host
	}
	if port != 0 {
		addr.Port = port
	}
	return addr.Address()
}
