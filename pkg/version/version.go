// Package version holds build information injected at link time.
//
// Build with:
//
//	go build -ldflags "-X github.com/toozej/discogs2spotify/pkg/version.Version=v1.0.0 \
//	  -X github.com/toozej/discogs2spotify/pkg/version.Commit=$(git rev-parse HEAD) \
//	  -X github.com/toozej/discogs2spotify/pkg/version.BuildTime=$(date -u +%FT%TZ)"
package version

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set via -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
	Builder   = "go"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	Builder   string `json:"builder"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		Builder:   Builder,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Command returns the "version" subcommand.
func Command() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of discogs2spotify",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := Get()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprintf(out, "discogs2spotify %s (commit %s, built %s by %s, %s %s)\n",
				info.Version, info.Commit, info.BuildTime, info.Builder, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON")

	return cmd
}
