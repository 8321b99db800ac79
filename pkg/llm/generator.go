// Package llm defines the inference backend abstraction used by the
// generation stage.
//
// A backend turns a prompt (and optionally a set of images) into text.
// Two implementations ship with mimic:
//
//   - ollama: the native Ollama HTTP API (/api/generate, /api/tags)
//   - openai: any OpenAI-compatible chat completions endpoint
//
// Example usage:
//
//	gen := ollama.NewClient(ollama.WithHost("http://localhost:11434"))
//	res, err := gen.Generate(ctx, llm.Request{
//	    Model:  "llava:7b",
//	    Prompt: "Describe the layout of this page",
//	    Images: [][]byte{screenshot},
//	})
//	if err != nil {
//	    log.Fatal(llm.Reason(err))
//	}
//	fmt.Println(res.Text)
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

var (
	// ErrUnavailable means the backend could not be reached.
	ErrUnavailable = errors.New("inference backend unavailable")
	// ErrTimeout means the backend did not answer in time.
	ErrTimeout = errors.New("inference request timed out")
	// ErrBackend means the backend answered with an error.
	ErrBackend = errors.New("inference backend error")
)

// Request is a single generation call.
type Request struct {
	Model  string
	Prompt string
	// System is an optional system prompt. Backends without a system
	// role prepend it to the prompt.
	System string
	// Images are raw PNG bytes passed to vision models.
	Images [][]byte
	// Temperature is optional; nil leaves the backend default.
	Temperature *float64
	// MaxTokens caps the response length when > 0.
	MaxTokens int
}

// Response is the result of a generation call.
type Response struct {
	Text             string
	Model            string
	Duration         time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Generator is implemented by every inference backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ModelLister is implemented by backends that can report installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// HealthChecker is implemented by backends with a cheap reachability probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Is makes a StatusError match ErrBackend.
func (e *StatusError) Is(target error) bool {
	return target == ErrBackend
}

// Classify wraps a transport-level failure with the matching sentinel.
// Errors that already carry a sentinel, and context cancellation, are
// returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrBackend) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}

// Reason returns a short caller-facing description of a generation failure.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Request timeout - model may be loading or overloaded"
	case errors.Is(err, ErrUnavailable):
		return "Cannot connect to inference service - ensure it is running"
	default:
		var se *StatusError
		if errors.As(err, &se) {
			return se.Error()
		}
		return "inference backend returned an error"
	}
}
