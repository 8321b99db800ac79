package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/mimic/pkg/browser"
)

// SectionIDBrowser is the identifier for the browser section
const SectionIDBrowser = "browser"

// BrowserSettings configures the shared Chromium process and page captures.
type BrowserSettings struct {
	Headless          bool
	Install           bool
	NavigationTimeout time.Duration
	ScreenshotTimeout time.Duration
	UserAgent         string
	BlockedHosts      []string
}

// DefaultBrowserSettings returns the built-in browser settings.
func DefaultBrowserSettings() BrowserSettings {
	return BrowserSettings{
		Headless:          true,
		NavigationTimeout: browser.DefaultNavigationTimeout,
		ScreenshotTimeout: browser.DefaultScreenshotTimeout,
		UserAgent:         browser.DefaultUserAgent,
		BlockedHosts:      append([]string(nil), browser.DefaultBlockedHosts...),
	}
}

// BrowserSection holds browser and capture settings.
type BrowserSection struct {
	settings BrowserSettings
	mu       sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{settings: DefaultBrowserSettings()}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Headless Chromium launch, capture timeouts and blocked tracker hosts"
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]any, len(s.settings.BlockedHosts))
	for i, h := range s.settings.BlockedHosts {
		hosts[i] = h
	}

	return map[string]any{
		"headless":           s.settings.Headless,
		"install":            s.settings.Install,
		"navigation_timeout": s.settings.NavigationTimeout.String(),
		"screenshot_timeout": s.settings.ScreenshotTimeout.String(),
		"user_agent":         s.settings.UserAgent,
		"blocked_hosts":      hosts,
	}
}

// SetData updates the configuration from the provided data. The update is
// applied only when every value parses.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	for key, value := range data {
		var err error
		switch key {
		case "headless":
			next.Headless, err = parseBool(key, value)
		case "install":
			next.Install, err = parseBool(key, value)
		case "navigation_timeout":
			next.NavigationTimeout, err = parseDuration(key, value)
		case "screenshot_timeout":
			next.ScreenshotTimeout, err = parseDuration(key, value)
		case "user_agent":
			next.UserAgent, err = parseString(key, value)
		case "blocked_hosts":
			next.BlockedHosts, err = parseStrings(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}

	s.settings = next
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive, got %v", s.settings.NavigationTimeout)
	}
	if s.settings.ScreenshotTimeout <= 0 {
		return fmt.Errorf("screenshot_timeout must be positive, got %v", s.settings.ScreenshotTimeout)
	}
	for _, pattern := range s.settings.BlockedHosts {
		if _, err := glob.Compile(strings.ToLower(pattern)); err != nil {
			return fmt.Errorf("invalid blocked host pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DefaultBrowserSettings()
}

// Get returns a copy of the current settings.
func (s *BrowserSection) Get() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	settings.BlockedHosts = append([]string(nil), s.settings.BlockedHosts...)
	return settings
}
