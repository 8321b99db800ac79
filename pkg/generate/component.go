// Package generate turns a design snapshot and screenshot into a
// framework-specific UI artifact through an inference backend.
//
// Generation runs in two phases. A vision model reads the screenshot and
// names the page's components and design system, then a code model writes
// the component from that reading plus the snapshot's design tokens. The
// answer is parsed, post-processed for the requested framework and styling,
// and returned as a types.Artifact.
package generate

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/entrhq/mimic/pkg/llm"
	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/types"
)

const (
	DefaultVisionModel = "llava:7b"
	DefaultCodeModel   = "codellama:13b"

	DefaultVisionTemperature = 0.3
	DefaultCodeTemperature   = 0.2
	DefaultVisionMaxTokens   = 2000
	DefaultCodeMaxTokens     = 4000
)

// Phase names an inference call.
type Phase string

const (
	PhaseVision Phase = "vision"
	PhaseCode   Phase = "code"
)

// InferenceError is a failed inference phase.
type InferenceError struct {
	Phase Phase
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference with %s failed: %v", e.Phase, e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Reason is the caller-facing description of the failure.
func (e *InferenceError) Reason() string {
	if errors.Is(e.Err, ErrEmptyCode) {
		return "Generated code is empty"
	}
	return llm.Reason(e.Err)
}

// Options configure a Generator.
type Options struct {
	VisionModel       string
	CodeModel         string
	VisionTemperature float64
	CodeTemperature   float64
	VisionMaxTokens   int
	CodeMaxTokens     int
	// SkipVision sends only the code prompt, for backends without a
	// vision model.
	SkipVision bool
	// MaxSnapshotTokens caps the page structure section of the code prompt.
	MaxSnapshotTokens int
}

// DefaultOptions returns the llava + codellama pairing.
func DefaultOptions() Options {
	return Options{
		VisionModel:       DefaultVisionModel,
		CodeModel:         DefaultCodeModel,
		VisionTemperature: DefaultVisionTemperature,
		CodeTemperature:   DefaultCodeTemperature,
		VisionMaxTokens:   DefaultVisionMaxTokens,
		CodeMaxTokens:     DefaultCodeMaxTokens,
		MaxSnapshotTokens: DefaultMaxSnapshotTokens,
	}
}

// Input is everything generation needs from the pipeline.
type Input struct {
	URL        string
	Config     types.ComponentConfig
	Snapshot   *types.DesignSnapshot
	Screenshot []byte
}

// Generator produces artifacts.
type Generator struct {
	backend llm.Generator
	opts    Options
	prompts *PromptBuilder
	logger  *logging.Logger
	now     func() time.Time
}

// New creates a Generator. A nil tokens counter uses the byte estimate.
func New(backend llm.Generator, opts Options, tokens TokenCounter, logger *logging.Logger) *Generator {
	defaults := DefaultOptions()
	if opts.VisionModel == "" {
		opts.VisionModel = defaults.VisionModel
	}
	if opts.CodeModel == "" {
		opts.CodeModel = defaults.CodeModel
	}
	if opts.VisionMaxTokens <= 0 {
		opts.VisionMaxTokens = defaults.VisionMaxTokens
	}
	if opts.CodeMaxTokens <= 0 {
		opts.CodeMaxTokens = defaults.CodeMaxTokens
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{
		backend: backend,
		opts:    opts,
		prompts: NewPromptBuilder(tokens, opts.MaxSnapshotTokens),
		logger:  logger,
		now:     time.Now,
	}
}

// Options returns the effective options.
func (g *Generator) Options() Options {
	return g.opts
}

// Models returns the models the generator calls, vision first.
func (g *Generator) Models() []string {
	if g.opts.SkipVision {
		return []string{g.opts.CodeModel}
	}
	return []string{g.opts.VisionModel, g.opts.CodeModel}
}

// Generate runs both inference phases and post-processes the result.
// Backend and parse failures are returned as *InferenceError.
func (g *Generator) Generate(ctx context.Context, in Input, logger *logging.Logger) (*types.Artifact, error) {
	if logger == nil {
		logger = g.logger
	}

	var visual *VisualAnalysis
	if !g.opts.SkipVision {
		start := time.Now()
		temp := g.opts.VisionTemperature
		res, err := g.backend.Generate(ctx, llm.Request{
			Model:       g.opts.VisionModel,
			Prompt:      g.prompts.VisionPrompt(in.URL),
			Images:      [][]byte{in.Screenshot},
			Temperature: &temp,
			MaxTokens:   g.opts.VisionMaxTokens,
		})
		if err != nil {
			logger.Errorf("Visual analysis failed (model=%s): %v", g.opts.VisionModel, err)
			return nil, &InferenceError{Phase: PhaseVision, Model: g.opts.VisionModel, Err: err}
		}
		visual = ParseVisual(res.Text)
		logger.Infof("Visual analysis completed in %s (%d components)", time.Since(start).Round(time.Millisecond), len(visual.Components))
	}

	start := time.Now()
	temp := g.opts.CodeTemperature
	res, err := g.backend.Generate(ctx, llm.Request{
		Model:       g.opts.CodeModel,
		Prompt:      g.prompts.CodePrompt(in.URL, in.Config, in.Snapshot, visual),
		Temperature: &temp,
		MaxTokens:   g.opts.CodeMaxTokens,
	})
	if err != nil {
		logger.Errorf("Code generation failed (model=%s): %v", g.opts.CodeModel, err)
		return nil, &InferenceError{Phase: PhaseCode, Model: g.opts.CodeModel, Err: err}
	}

	parsed, err := ParseCode(res.Text)
	if err != nil {
		return nil, &InferenceError{Phase: PhaseCode, Model: g.opts.CodeModel, Err: err}
	}
	logger.Infof("Code generation completed in %s (%d bytes, %d imports)", time.Since(start).Round(time.Millisecond), len(parsed.Code), len(parsed.Imports))

	comp := PostProcess(in.Config, parsed, in.Snapshot)

	now := g.now()
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to generate artifact id: %w", err)
	}

	artifact := &types.Artifact{
		ID:           id.String(),
		Framework:    in.Config.Framework,
		Styling:      in.Config.Styling,
		Code:         comp.Code,
		Imports:      comp.Imports,
		Dependencies: comp.Dependencies,
		Filename:     comp.Filename,
		Instructions: Instructions(in.Config, comp.Filename),
		GeneratedAt:  now.UTC(),
		CodeModel:    g.opts.CodeModel,
	}
	if !g.opts.SkipVision {
		artifact.VisionModel = g.opts.VisionModel
	}
	return artifact, nil
}
