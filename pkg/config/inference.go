package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/generate"
	"github.com/entrhq/mimic/pkg/llm/ollama"
)

const (
	// SectionIDInference is the identifier for the inference section
	SectionIDInference = "inference"

	// BackendOllama serves both phases from an Ollama host
	BackendOllama = "ollama"
	// BackendOpenAI serves both phases from an OpenAI-compatible API
	BackendOpenAI = "openai"
)

// Inference selects the backend and models used to generate components.
type Inference struct {
	Backend           string
	Host              string
	BaseURL           string
	APIKey            string
	VisionModel       string
	CodeModel         string
	SkipVision        bool
	Timeout           time.Duration
	MaxSnapshotTokens int
}

// DefaultInference returns the Ollama llava + codellama setup.
func DefaultInference() Inference {
	return Inference{
		Backend:           BackendOllama,
		VisionModel:       generate.DefaultVisionModel,
		CodeModel:         generate.DefaultCodeModel,
		Timeout:           ollama.DefaultTimeout,
		MaxSnapshotTokens: generate.DefaultMaxSnapshotTokens,
	}
}

// InferenceSection holds the inference backend settings.
type InferenceSection struct {
	inference Inference
	mu        sync.RWMutex
}

// NewInferenceSection creates an inference section with default settings.
func NewInferenceSection() *InferenceSection {
	return &InferenceSection{inference: DefaultInference()}
}

// ID returns the section identifier.
func (s *InferenceSection) ID() string {
	return SectionIDInference
}

// Title returns the section title.
func (s *InferenceSection) Title() string {
	return "Inference"
}

// Description returns the section description.
func (s *InferenceSection) Description() string {
	return "Inference backend (ollama or openai), host and the vision and code models"
}

// Data returns the current configuration data.
func (s *InferenceSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := s.inference
	return map[string]any{
		"backend":             in.Backend,
		"host":                in.Host,
		"base_url":            in.BaseURL,
		"api_key":             in.APIKey,
		"vision_model":        in.VisionModel,
		"code_model":          in.CodeModel,
		"skip_vision":         in.SkipVision,
		"timeout":             in.Timeout.String(),
		"max_snapshot_tokens": in.MaxSnapshotTokens,
	}
}

// SetData updates the configuration from the provided data. The update is
// applied only when every value parses.
func (s *InferenceSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.inference
	for key, value := range data {
		var err error
		switch key {
		case "backend":
			next.Backend, err = parseString(key, value)
		case "host":
			next.Host, err = parseString(key, value)
		case "base_url":
			next.BaseURL, err = parseString(key, value)
		case "api_key":
			next.APIKey, err = parseString(key, value)
		case "vision_model":
			next.VisionModel, err = parseString(key, value)
		case "code_model":
			next.CodeModel, err = parseString(key, value)
		case "skip_vision":
			next.SkipVision, err = parseBool(key, value)
		case "timeout":
			next.Timeout, err = parseDuration(key, value)
		case "max_snapshot_tokens":
			var n int64
			n, err = parseInt(key, value)
			next.MaxSnapshotTokens = int(n)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}

	s.inference = next
	return nil
}

// Validate validates the current configuration. Credentials are checked
// when the backend is built, since they may come from the environment.
func (s *InferenceSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := s.inference
	if in.Backend != BackendOllama && in.Backend != BackendOpenAI {
		return fmt.Errorf("backend must be %q or %q, got %q", BackendOllama, BackendOpenAI, in.Backend)
	}
	if in.CodeModel == "" {
		return fmt.Errorf("code_model is required")
	}
	if in.VisionModel == "" && !in.SkipVision {
		return fmt.Errorf("vision_model is required unless skip_vision is set")
	}
	if in.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", in.Timeout)
	}
	if in.MaxSnapshotTokens < 100 {
		return fmt.Errorf("max_snapshot_tokens must be at least 100, got %d", in.MaxSnapshotTokens)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *InferenceSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inference = DefaultInference()
}

// Get returns a copy of the current settings.
func (s *InferenceSection) Get() Inference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inference
}

// Set replaces the current settings.
func (s *InferenceSection) Set(in Inference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inference = in
}
