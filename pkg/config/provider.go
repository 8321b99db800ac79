package config

import (
	"fmt"
	"os"

	"github.com/entrhq/mimic/pkg/llm"
	"github.com/entrhq/mimic/pkg/llm/ollama"
	"github.com/entrhq/mimic/pkg/llm/openai"
)

// InferenceFlags are inference settings given on the command line. Empty
// fields are unset.
type InferenceFlags struct {
	Backend     string
	Host        string
	BaseURL     string
	APIKey      string
	VisionModel string
	CodeModel   string
	SkipVision  bool
}

// Backend is an inference backend that can also report its health.
type Backend interface {
	llm.Generator
	llm.ModelLister
	llm.HealthChecker
}

// ResolveInference merges inference settings with the precedence
// CLI flags > environment variables > config file > defaults.
func ResolveInference(flags InferenceFlags) Inference {
	resolved := DefaultInference()
	if section := GetInference(); section != nil {
		resolved = section.Get()
	}

	if v := os.Getenv(EnvOllamaHost); v != "" {
		resolved.Host = v
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		resolved.BaseURL = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		resolved.APIKey = v
	}

	if flags.Backend != "" {
		resolved.Backend = flags.Backend
	}
	if flags.Host != "" {
		resolved.Host = flags.Host
	}
	if flags.BaseURL != "" {
		resolved.BaseURL = flags.BaseURL
	}
	if flags.APIKey != "" {
		resolved.APIKey = flags.APIKey
	}
	if flags.VisionModel != "" {
		resolved.VisionModel = flags.VisionModel
	}
	if flags.CodeModel != "" {
		resolved.CodeModel = flags.CodeModel
	}
	if flags.SkipVision {
		resolved.SkipVision = true
	}

	return resolved
}

// BuildBackend creates the inference backend named by in.Backend.
func BuildBackend(in Inference) (Backend, error) {
	switch in.Backend {
	case BackendOllama, "":
		opts := []ollama.Option{ollama.WithHost(in.Host)}
		if in.Timeout > 0 {
			opts = append(opts, ollama.WithTimeout(in.Timeout))
		}
		return ollama.NewClient(opts...), nil

	case BackendOpenAI:
		if in.APIKey == "" {
			return nil, fmt.Errorf("API key is required for the openai backend. Set %s, use --api-key, or run `mimic config set inference.api_key <key>`", EnvOpenAIAPIKey)
		}
		opts := []openai.ProviderOption{openai.WithModel(in.CodeModel)}
		if in.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(in.BaseURL))
		}
		provider, err := openai.NewProvider(in.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create inference backend: %w", err)
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown inference backend %q", in.Backend)
	}
}
