// Package urlcheck validates externally supplied media URLs before the
// pipeline fetches them, so a crafted callback or transcription request
// cannot point us at internal infrastructure.
package urlcheck

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Hostnames that are never fetchable regardless of how they resolve.
var blockedHosts = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
}

var blockedSuffixes = []string{".local", ".internal", ".localhost"}

// ValidateFetchURL reports whether raw is safe for the server to fetch:
// absolute https URL, no userinfo, and a host that is neither a private or
// loopback address nor an internal-looking name.
func ValidateFetchURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("url is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid url %q: absolute URL with host is required", raw)
	}
	if u.User != nil {
		return fmt.Errorf("invalid url %q: userinfo is not allowed", raw)
	}
	if strings.ToLower(u.Scheme) != "https" {
		return fmt.Errorf("invalid url %q: https is required", raw)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid url %q: host is required", raw)
	}
	if _, blocked := blockedHosts[host]; blocked {
		return fmt.Errorf("invalid url %q: host %q is not fetchable", raw, host)
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return fmt.Errorf("invalid url %q: host %q is not fetchable", raw, host)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("invalid url %q: address %s is not fetchable", raw, ip)
		}
	}
	return nil
}
