// Package useragent provides utilities for generating user agent strings.
//
// The Discogs API rejects requests that do not identify the calling
// application, so every request carries a string of the form
// "<name>/<version> +<url>" with the runtime platform appended.
package useragent

import (
	"fmt"
	"runtime"
	"strings"
)

// ForApp returns a user agent identifying the application.
//
// Example:
//
//	ua := useragent.ForApp("discogs2spotify", "1.2.0", "https://example.com")
//	// Returns: "discogs2spotify/1.2.0 +https://example.com (linux; amd64)"
func ForApp(name, version, url string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "discogs2spotify"
	}

	version = strings.TrimSpace(version)
	if version == "" {
		version = "dev"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s", name, version)
	if url = strings.TrimSpace(url); url != "" {
		fmt.Fprintf(&b, " +%s", url)
	}
	fmt.Fprintf(&b, " (%s; %s)", runtime.GOOS, runtime.GOARCH)
	return b.String()
}
