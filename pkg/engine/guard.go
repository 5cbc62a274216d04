package engine

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"
)

// HostAllowed reports whether the target URL's host matches one of the
// allowed-host glob patterns. An empty pattern list allows every host.
func HostAllowed(rawURL string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid target URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return false, fmt.Errorf("target URL %q has no host", rawURL)
	}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid allowed-host pattern %q: %w", pattern, err)
		}
		if g.Match(host) {
			return true, nil
		}
	}
	return false, nil
}
