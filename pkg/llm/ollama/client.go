// Package ollama is an llm.Generator backed by the native Ollama HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/entrhq/mimic/pkg/llm"
)

const (
	// DefaultHost is used when neither WithHost nor OLLAMA_HOST is set.
	DefaultHost = "http://localhost:11434"
	// DefaultTimeout bounds a single generate call.
	DefaultTimeout = 120 * time.Second
	// DefaultListTimeout bounds model listing and health probes.
	DefaultListTimeout = 10 * time.Second
)

// Client talks to an Ollama server.
type Client struct {
	httpClient  *http.Client
	host        string
	timeout     time.Duration
	listTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHost sets the server base URL.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithTimeout sets the per-generate timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client. The host falls back to OLLAMA_HOST and then
// DefaultHost.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		listTimeout: DefaultListTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.host == "" {
		c.host = os.Getenv("OLLAMA_HOST")
	}
	if c.host == "" {
		c.host = DefaultHost
	}
	c.host = strings.TrimRight(c.host, "/")
	return c
}

// Host returns the server base URL.
func (c *Client) Host() string {
	return c.host
}

type generateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	System  string           `json:"system,omitempty"`
	Images  []string         `json:"images,omitempty"`
	Stream  bool             `json:"stream"`
	Options *generateOptions `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Generate runs a non-streaming /api/generate call.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	body := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	for _, img := range req.Images {
		body.Images = append(body.Images, base64.StdEncoding.EncodeToString(img))
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = &generateOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to decode response: %w", err))
	}
	if out.Error != "" {
		return nil, &llm.StatusError{StatusCode: resp.StatusCode, Body: out.Error}
	}

	elapsed := time.Since(start)
	if out.TotalDuration > 0 {
		elapsed = time.Duration(out.TotalDuration)
	}
	model := out.Model
	if model == "" {
		model = req.Model
	}

	return &llm.Response{
		Text:             out.Response,
		Model:            model,
		Duration:         elapsed,
		PromptTokens:     out.PromptEvalCount,
		CompletionTokens: out.EvalCount,
	}, nil
}

// Model is one entry of /api/tags.
type Model struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// Models returns the full /api/tags listing.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to list models: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to decode model list: %w", err))
	}
	return out.Models, nil
}

// ListModels implements llm.ModelLister.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Ping implements llm.HealthChecker.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Models(ctx)
	return err
}

// HasModel reports whether name is installed on the server.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	names, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(body))

	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		text = apiErr.Error
	}
	return &llm.StatusError{StatusCode: resp.StatusCode, Body: text}
}
