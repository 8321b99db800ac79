package urlguard

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query parameters that never change page content.
var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"fbclid",
	"gclid",
	"ref",
	"_ga",
}

// Normalize returns the canonical form of raw used for cache identity:
// lowercased scheme and host, default ports dropped, an empty path made "/",
// tracking parameters removed, the remaining query sorted, and the fragment
// discarded. It is a pure function of its input.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host, err := CanonicalHost(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("url %q: %w", raw, err)
	}
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		u.Host = host + ":" + port
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	if u.Path == "" {
		u.Path = "/"
	}

	query := u.Query()
	for _, p := range trackingParams {
		query.Del(p)
	}
	// Encode sorts by key
	u.RawQuery = query.Encode()
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	return u.String(), nil
}
