package config

import (
	"fmt"
	"sync"
)

// Section is a named group of settings persisted under its ID.
type Section interface {
	// ID returns the key the section is stored under
	ID() string

	// Title returns a short human readable name
	Title() string

	// Description returns a one line summary of what the section controls
	Description() string

	// Data returns the current settings as a plain map
	Data() map[string]interface{}

	// SetData applies settings from a plain map, ignoring unknown keys
	SetData(data map[string]interface{}) error

	// Validate reports whether the current settings are usable
	Validate() error

	// Reset restores the defaults
	Reset()
}

// Manager owns the registered sections and moves their data to and from a Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []Section
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sections[section.ID()]; exists {
		return fmt.Errorf("section %q already registered", section.ID())
	}

	m.sections[section.ID()] = section
	m.order = append(m.order, section)
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, len(m.order))
	copy(sections, m.order)
	return sections
}

// LoadAll reloads the store and pushes each section's stored data into it.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, section := range m.GetSections() {
		data, err := m.store.GetSection(section.ID())
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", section.ID(), err)
		}
		if len(data) == 0 {
			continue
		}
		if err := section.SetData(data); err != nil {
			return fmt.Errorf("failed to apply section %s: %w", section.ID(), err)
		}
	}

	return nil
}

// SaveAll validates every section, then writes them all to the store.
// Nothing is written when any section is invalid.
func (m *Manager) SaveAll() error {
	sections := m.GetSections()

	for _, section := range sections {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("invalid section %s: %w", section.ID(), err)
		}
	}

	for _, section := range sections {
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
		}
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResetAll restores every section to its defaults.
func (m *Manager) ResetAll() {
	for _, section := range m.GetSections() {
		section.Reset()
	}
}
