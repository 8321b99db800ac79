package config

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/admission"
	"github.com/entrhq/mimic/pkg/cache"
	"github.com/entrhq/mimic/pkg/extract"
)

const (
	// SectionIDLimits is the identifier for the limits section
	SectionIDLimits = "limits"

	// DefaultRequestTimeout is the whole-request budget
	DefaultRequestTimeout = 30 * time.Second
)

// Limits bounds how much work the pipeline accepts and how much it keeps.
type Limits struct {
	MaxConcurrent     int
	MaxQueue          int
	RateLimit         int
	RateWindow        time.Duration
	MaxElements       int
	MaxResourceBytes  int64
	ExtractionTimeout time.Duration
	CacheMaxBytes     int64
	CacheTTL          time.Duration
	RequestTimeout    time.Duration
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxConcurrent:     admission.DefaultMaxConcurrent,
		MaxQueue:          admission.DefaultMaxQueue,
		RateLimit:         admission.DefaultRateLimit,
		RateWindow:        admission.DefaultRateWindow,
		MaxElements:       extract.DefaultMaxElements,
		MaxResourceBytes:  extract.DefaultMaxResourceBytes,
		ExtractionTimeout: extract.DefaultTimeout,
		CacheMaxBytes:     cache.DefaultMaxSize,
		CacheTTL:          cache.DefaultTTL,
		RequestTimeout:    DefaultRequestTimeout,
	}
}

// LimitsSection holds admission, extraction and cache limits.
type LimitsSection struct {
	limits Limits
	mu     sync.RWMutex
}

// NewLimitsSection creates a limits section with default settings.
func NewLimitsSection() *LimitsSection {
	return &LimitsSection{limits: DefaultLimits()}
}

// ID returns the section identifier.
func (s *LimitsSection) ID() string {
	return SectionIDLimits
}

// Title returns the section title.
func (s *LimitsSection) Title() string {
	return "Limits"
}

// Description returns the section description.
func (s *LimitsSection) Description() string {
	return "Concurrency, rate limiting, page size and cache limits for analyses"
}

// Data returns the current configuration data.
func (s *LimitsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.limits
	return map[string]any{
		"max_concurrent":     l.MaxConcurrent,
		"max_queue":          l.MaxQueue,
		"rate_limit":         l.RateLimit,
		"rate_window":        l.RateWindow.String(),
		"max_elements":       l.MaxElements,
		"max_resource_bytes": l.MaxResourceBytes,
		"extraction_timeout": l.ExtractionTimeout.String(),
		"cache_max_bytes":    l.CacheMaxBytes,
		"cache_ttl":          l.CacheTTL.String(),
		"request_timeout":    l.RequestTimeout.String(),
	}
}

// SetData updates the configuration from the provided data. The update is
// applied only when every value parses.
func (s *LimitsSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.limits
	for key, value := range data {
		var err error
		switch key {
		case "max_concurrent":
			err = setInt(&next.MaxConcurrent, key, value)
		case "max_queue":
			err = setInt(&next.MaxQueue, key, value)
		case "rate_limit":
			err = setInt(&next.RateLimit, key, value)
		case "rate_window":
			next.RateWindow, err = parseDuration(key, value)
		case "max_elements":
			err = setInt(&next.MaxElements, key, value)
		case "max_resource_bytes":
			next.MaxResourceBytes, err = parseInt(key, value)
		case "extraction_timeout":
			next.ExtractionTimeout, err = parseDuration(key, value)
		case "cache_max_bytes":
			next.CacheMaxBytes, err = parseInt(key, value)
		case "cache_ttl":
			next.CacheTTL, err = parseDuration(key, value)
		case "request_timeout":
			next.RequestTimeout, err = parseDuration(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	s.limits = next
	return nil
}

func setInt(dst *int, key string, value any) error {
	n, err := parseInt(key, value)
	if err != nil {
		return err
	}
	*dst = int(n)
	return nil
}

// Validate validates the current configuration.
func (s *LimitsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.limits
	switch {
	case l.MaxConcurrent < 1:
		return fmt.Errorf("max_concurrent must be at least 1, got %d", l.MaxConcurrent)
	case l.MaxQueue < 0:
		return fmt.Errorf("max_queue must not be negative, got %d", l.MaxQueue)
	case l.RateLimit < 1:
		return fmt.Errorf("rate_limit must be at least 1, got %d", l.RateLimit)
	case l.RateWindow < time.Second:
		return fmt.Errorf("rate_window must be at least 1s, got %v", l.RateWindow)
	case l.MaxElements < 1:
		return fmt.Errorf("max_elements must be at least 1, got %d", l.MaxElements)
	case l.MaxResourceBytes < 1:
		return fmt.Errorf("max_resource_bytes must be positive, got %d", l.MaxResourceBytes)
	case l.ExtractionTimeout <= 0:
		return fmt.Errorf("extraction_timeout must be positive, got %v", l.ExtractionTimeout)
	case l.CacheMaxBytes < 1:
		return fmt.Errorf("cache_max_bytes must be positive, got %d", l.CacheMaxBytes)
	case l.CacheTTL <= 0:
		return fmt.Errorf("cache_ttl must be positive, got %v", l.CacheTTL)
	case l.RequestTimeout <= 0:
		return fmt.Errorf("request_timeout must be positive, got %v", l.RequestTimeout)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LimitsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = DefaultLimits()
}

// Get returns a copy of the current limits.
func (s *LimitsSection) Get() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// ApplyEnv overrides limits from MAX_CONCURRENT_ANALYSES and
// RATE_LIMIT_PER_MINUTE. The per-minute rate also resets the window to 60s.
func (s *LimitsSection) ApplyEnv(lookup func(string) (string, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := lookup(EnvMaxConcurrent); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid %s %q", EnvMaxConcurrent, v)
		}
		s.limits.MaxConcurrent = n
	}
	if v, ok := lookup(EnvRateLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid %s %q", EnvRateLimit, v)
		}
		s.limits.RateLimit = n
		s.limits.RateWindow = time.Minute
	}
	return nil
}
