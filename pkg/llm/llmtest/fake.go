// Package llmtest provides an in-memory llm.Generator for tests.
package llmtest

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/llm"
)

// Generator answers from a per-model table.
type Generator struct {
	// Responses maps a model name to its answer text.
	Responses map[string]string
	// Default answers models missing from Responses.
	Default string
	// Errors maps a model name to a failure.
	Errors map[string]error
	// Delay is waited, honoring ctx, before answering.
	Delay time.Duration

	mu    sync.Mutex
	calls []llm.Request
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, llm.Classify(ctx.Err())
		}
	}

	if err, ok := g.Errors[req.Model]; ok {
		return nil, err
	}
	text, ok := g.Responses[req.Model]
	if !ok {
		text = g.Default
	}
	return &llm.Response{Text: text, Model: req.Model, Duration: g.Delay}, nil
}

// Calls returns the requests seen so far.
func (g *Generator) Calls() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.calls...)
}

// Models returns the model of every call in order.
func (g *Generator) Models() []string {
	var out []string
	for _, c := range g.Calls() {
		out = append(out, c.Model)
	}
	return out
}
