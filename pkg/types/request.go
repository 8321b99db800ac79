package types

import (
	"fmt"
	"strings"
)

// Framework identifies the UI framework an artifact is generated for.
type Framework string

const (
	FrameworkReact   Framework = "react"
	FrameworkAngular Framework = "angular"
	FrameworkVue     Framework = "vue"
	FrameworkSvelte  Framework = "svelte"
)

// Styling identifies the styling approach used by a generated artifact.
type Styling string

const (
	StylingTailwind         Styling = "tailwind"
	StylingCSS              Styling = "css"
	StylingSCSS             Styling = "scss"
	StylingStyledComponents Styling = "styled-components"
)

// Frameworks lists every supported framework in canonical order.
var Frameworks = []Framework{FrameworkReact, FrameworkAngular, FrameworkVue, FrameworkSvelte}

// Stylings lists every supported styling approach in canonical order.
var Stylings = []Styling{StylingTailwind, StylingCSS, StylingSCSS, StylingStyledComponents}

// IsValid reports whether f is a supported framework.
func (f Framework) IsValid() bool {
	for _, known := range Frameworks {
		if f == known {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a supported styling approach.
func (s Styling) IsValid() bool {
	for _, known := range Stylings {
		if s == known {
			return true
		}
	}
	return false
}

// Options are the optional generation switches of a request.
// A nil field means "use the default", which is true for all three.
type Options struct {
	TypeScript    *bool `json:"typescript,omitempty" yaml:"typescript,omitempty"`
	Responsive    *bool `json:"responsive,omitempty" yaml:"responsive,omitempty"`
	Accessibility *bool `json:"accessibility,omitempty" yaml:"accessibility,omitempty"`
}

// AnalysisRequest is the immutable input of one pipeline run.
type AnalysisRequest struct {
	URL       string    `json:"url" yaml:"url"`
	Framework Framework `json:"framework" yaml:"framework"`
	Styling   Styling   `json:"styling" yaml:"styling"`
	Options   *Options  `json:"options,omitempty" yaml:"options,omitempty"`
}

// ComponentConfig is the generation config with every default applied.
// It is the config half of a cache key, so two requests that differ only
// in omitted-vs-default options resolve to the same ComponentConfig.
type ComponentConfig struct {
	Framework     Framework `json:"framework"`
	Styling       Styling   `json:"styling"`
	TypeScript    bool      `json:"typescript"`
	Responsive    bool      `json:"responsive"`
	Accessibility bool      `json:"accessibility"`
}

// Config resolves the request's generation config, applying defaults.
func (r AnalysisRequest) Config() ComponentConfig {
	cfg := ComponentConfig{
		Framework:     r.Framework,
		Styling:       r.Styling,
		TypeScript:    true,
		Responsive:    true,
		Accessibility: true,
	}
	if r.Options == nil {
		return cfg
	}
	if r.Options.TypeScript != nil {
		cfg.TypeScript = *r.Options.TypeScript
	}
	if r.Options.Responsive != nil {
		cfg.Responsive = *r.Options.Responsive
	}
	if r.Options.Accessibility != nil {
		cfg.Accessibility = *r.Options.Accessibility
	}
	return cfg
}

// Validate checks framework, styling and their combination. Every failure
// is an InvalidInput error.
func (c ComponentConfig) Validate() error {
	var missing []string
	if c.Framework == "" {
		missing = append(missing, "framework is required")
	}
	if c.Styling == "" {
		missing = append(missing, "styling is required")
	}
	if len(missing) > 0 {
		return NewValidation(strings.Join(missing, "; "), map[string]any{"errors": missing})
	}

	if !c.Framework.IsValid() {
		return NewUnsupportedFramework(string(c.Framework))
	}
	if !c.Styling.IsValid() {
		return NewUnsupportedStyling(string(c.Styling), string(c.Framework))
	}
	if c.Styling == StylingStyledComponents && c.Framework != FrameworkReact {
		return NewUnsupportedStyling(string(c.Styling), string(c.Framework))
	}
	return nil
}

// Canonical returns the stable textual form of the config used in cache keys.
func (c ComponentConfig) Canonical() string {
	return fmt.Sprintf("framework=%s;styling=%s;typescript=%t;responsive=%t;accessibility=%t",
		c.Framework, c.Styling, c.TypeScript, c.Responsive, c.Accessibility)
}

// FileExtension returns the artifact file extension for the config.
func (c ComponentConfig) FileExtension() string {
	switch c.Framework {
	case FrameworkReact:
		if c.TypeScript {
			return ".tsx"
		}
		return ".jsx"
	case FrameworkAngular:
		return ".component.ts"
	case FrameworkVue:
		return ".vue"
	case FrameworkSvelte:
		return ".svelte"
	default:
		return ".ts"
	}
}
