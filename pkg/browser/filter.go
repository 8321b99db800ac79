package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultBlockedResourceTypes are request types never fetched while rendering.
var DefaultBlockedResourceTypes = []string{"font"}

// DefaultBlockedHosts are tracker and social hosts whose requests are aborted.
// Patterns match the request host; '*' also spans dots.
var DefaultBlockedHosts = []string{
	"*google-analytics.com",
	"*googletagmanager.com",
	"*facebook.com",
	"*facebook.net",
	"*twitter.com",
	"*doubleclick.net",
	"*analytics*",
}

// ResourceFilter is a declarative denylist evaluated synchronously for
// every subresource request a page makes.
type ResourceFilter struct {
	types    map[string]bool
	patterns []string
	hosts    []glob.Glob
}

// NewResourceFilter compiles a filter from resource types and host patterns.
func NewResourceFilter(resourceTypes, hostPatterns []string) (*ResourceFilter, error) {
	f := &ResourceFilter{
		types:    make(map[string]bool, len(resourceTypes)),
		patterns: make([]string, 0, len(hostPatterns)),
		hosts:    make([]glob.Glob, 0, len(hostPatterns)),
	}
	for _, t := range resourceTypes {
		f.types[strings.ToLower(t)] = true
	}
	for _, p := range hostPatterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid host pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
		f.hosts = append(f.hosts, g)
	}
	return f, nil
}

// DefaultResourceFilter blocks fonts and known tracker hosts.
func DefaultResourceFilter() *ResourceFilter {
	f, err := NewResourceFilter(DefaultBlockedResourceTypes, DefaultBlockedHosts)
	if err != nil {
		panic(err)
	}
	return f
}

// Blocks reports whether a request of resourceType for rawURL is denied.
func (f *ResourceFilter) Blocks(resourceType, rawURL string) bool {
	if f == nil {
		return false
	}
	if f.types[strings.ToLower(resourceType)] {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, g := range f.hosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Patterns returns the host patterns the filter was built from.
func (f *ResourceFilter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}
