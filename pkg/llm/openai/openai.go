// Package openai provides an llm.Generator for OpenAI-compatible chat
// completion APIs, including local servers that speak the same protocol.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithBaseURL("http://localhost:11434/v1"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	res, err := provider.Generate(ctx, llm.Request{
//	    Model:  "gpt-4o",
//	    Prompt: "Describe this page",
//	    Images: [][]byte{screenshot},
//	})
package openai

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

	"github.com/openai/openai-go"

	"github.com/entrhq/mimic/pkg/llm"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when a request names no model.
	DefaultModel = "gpt-4o"
)

// Provider implements llm.Generator for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the fallback model for requests that name none.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = hc
	}
}

// NewProvider creates a new provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY environment variable.
// If baseURL is not provided via WithBaseURL option, it will check OPENAI_BASE_URL environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	// If baseURL wasn't set by options, check environment variable
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}
	p.baseURL = strings.TrimRight(p.baseURL, "/")

	return p, nil
}

// GetModel returns the fallback model.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the API base URL.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// Generate sends a single non-streaming chat completion.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	reqBody := map[string]interface{}{
		"model":    model,
		"messages": buildMessages(req),
		"stream":   false,
	}
	if req.Temperature != nil {
		reqBody["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		reqBody["max_tokens"] = req.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var completion openai.ChatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: response contained no choices", llm.ErrBackend)
	}

	if completion.Model != "" {
		model = completion.Model
	}
	return &llm.Response{
		Text:             completion.Choices[0].Message.Content,
		Model:            model,
		Duration:         time.Since(start),
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	}, nil
}

// buildMessages converts a request into chat messages. Images travel as
// base64 data URLs alongside the prompt text in a single user message.
func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	if len(req.Images) == 0 {
		return append(messages, openai.UserMessage(req.Prompt))
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.Images)+1)
	parts = append(parts, openai.TextContentPart(req.Prompt))
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		}))
	}
	return append(messages, openai.UserMessage(parts))
}

// ListModels implements llm.ModelLister using GET /models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to list models: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page struct {
		Data []openai.Model `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, llm.Classify(fmt.Errorf("failed to decode model list: %w", err))
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

// Ping implements llm.HealthChecker.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}
