package cmd

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/toozej/discogs2spotify/internal/spotify"
)

// newTokenCmd creates the token command, which obtains a Spotify access token
// usable as a bearer token against the HTTP API.
func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Obtain a Spotify access token",
		Long: `Obtain a Spotify access token from SPOTIFY_ACCESS_TOKEN, the stored token
file or the client credentials flow, and print it. With --save the token is
written to SPOTIFY_TOKEN_FILE_PATH so later runs reuse it until it expires.`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}

	cmd.Flags().BoolP("save", "s", false, "Save the token to the token file")

	return cmd
}

// runToken executes the token command.
func runToken(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")

	ctx, cancel := signalContext()
	defer cancel()

	provider := spotify.NewTokenProvider(conf.Spotify, appLogger())
	token, err := provider.OAuthToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Spotify token: %w", err)
	}

	if save {
		path, err := conf.Spotify.GetTokenFilePath()
		if err != nil {
			return err
		}
		if err := spotify.SaveToken(path, token); err != nil {
			return err
		}
		log.WithField("path", path).Info("Saved Spotify token")
	}

	printToken(cmd.OutOrStdout(), token)
	return nil
}

func printToken(w io.Writer, token *oauth2.Token) {
	fmt.Fprintln(w, token.AccessToken)
	if !token.Expiry.IsZero() {
		fmt.Fprintf(w, "# expires %s\n", token.Expiry.Local().Format("Jan 2, 2006 15:04"))
	}
}
