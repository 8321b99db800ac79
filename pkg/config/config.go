// Package config holds mimic's persistent settings.
//
// Settings are grouped into sections (limits, browser, inference) that a
// Manager loads from and saves to a Store, by default the JSON file
// ~/.mimic/config.json. Environment variables and command line flags are
// layered on top by the callers that need them; they are never persisted.
package config

import (
	"os"
	"sync"
)

// Environment variables read by mimic
const (
	EnvOllamaHost    = "OLLAMA_HOST"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvMaxConcurrent = "MAX_CONCURRENT_ANALYSES"
	EnvRateLimit     = "RATE_LIMIT_PER_MINUTE"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager creates a manager over store with every mimic section
// registered, without loading it.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	for _, section := range []Section{
		NewLimitsSection(),
		NewBrowserSection(),
		NewInferenceSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetLimits returns the limits section from global config.
// Returns nil if config is not initialized.
func GetLimits() *LimitsSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDLimits)
	if !ok {
		return nil
	}

	limits, ok := section.(*LimitsSection)
	if !ok {
		return nil
	}

	return limits
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}

	browser, ok := section.(*BrowserSection)
	if !ok {
		return nil
	}

	return browser
}

// GetInference returns the inference section from global config.
// Returns nil if config is not initialized.
func GetInference() *InferenceSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDInference)
	if !ok {
		return nil
	}

	inference, ok := section.(*InferenceSection)
	if !ok {
		return nil
	}

	return inference
}

// ResolveLimits returns the configured limits with environment overrides
// applied. Defaults are used when config is not initialized.
func ResolveLimits() (Limits, error) {
	section := NewLimitsSection()
	if configured := GetLimits(); configured != nil {
		if err := section.SetData(configured.Data()); err != nil {
			return Limits{}, err
		}
	}
	if err := section.ApplyEnv(os.LookupEnv); err != nil {
		return Limits{}, err
	}
	return section.Get(), nil
}
