// Package urlguard validates target URLs before any browser resource is
// touched and normalizes them into the stable form used for cache keys.
// It blocks local, private and non-web targets so the renderer can never be
// pointed back at the host it runs on.
package urlguard

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxURLLength is the longest URL accepted for analysis.
const MaxURLLength = 2048

// blockedHosts are hostnames rejected regardless of resolution.
var blockedHosts = map[string]bool{
	"localhost":             true,
	"localhost.localdomain": true,
	"0.0.0.0":               true,
	"::":                    true,
}

// privateNets lists loopback, private and link-local ranges.
var privateNets = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("urlguard: bad CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// Violation describes why a URL was rejected.
type Violation struct {
	URL    string
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("url %q rejected: %s", v.URL, v.Reason)
}

// Validate checks that raw is an absolute http(s) URL pointing at a public
// host. The returned error is always a *Violation.
//
// Returns an error if:
// - The URL is empty or longer than MaxURLLength
// - The scheme is not http or https (data:, file:, javascript: ...)
// - The host is localhost, an unspecified address, or in a private range
// - The host ends in a number but is not a well-formed IPv4 address
//
// Numeric hosts are checked in their canonical dotted form, so
// http://2130706433/ is treated as http://127.0.0.1/.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &Violation{URL: raw, Reason: "URL is required"}
	}
	if len(raw) > MaxURLLength {
		return &Violation{URL: truncate(raw), Reason: fmt.Sprintf("URL exceeds %d characters", MaxURLLength)}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &Violation{URL: raw, Reason: "URL could not be parsed"}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "data", "file":
		return &Violation{URL: raw, Reason: fmt.Sprintf("%s: URLs are not allowed", strings.ToLower(u.Scheme))}
	default:
		return &Violation{URL: raw, Reason: "only http and https URLs are allowed"}
	}

	if u.Hostname() == "" {
		return &Violation{URL: raw, Reason: "URL has no host"}
	}
	host, err := CanonicalHost(u.Hostname())
	if err != nil {
		return &Violation{URL: raw, Reason: "host is not a valid IPv4 address"}
	}
	host = strings.TrimSuffix(host, ".")
	if blockedHosts[host] || strings.HasSuffix(host, ".localhost") {
		return &Violation{URL: raw, Reason: "local addresses are not allowed"}
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return &Violation{URL: raw, Reason: "private network addresses are not allowed"}
	}

	return nil
}

// IsPrivateIP reports whether ip is loopback, private, link-local or unspecified.
func IsPrivateIP(ip net.IP) bool {
	if ip.IsUnspecified() {
		return true
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}
