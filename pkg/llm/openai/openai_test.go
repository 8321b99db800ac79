package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/llm"
)

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	require.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "sk-env")
	p, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", p.apiKey)
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestNewProviderBaseURL(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://env:8080/v1/")
	p, err := NewProvider("k")
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080/v1", p.GetBaseURL())

	p, err = NewProvider("k", WithBaseURL("http://explicit/v1"))
	require.NoError(t, err)
	assert.Equal(t, "http://explicit/v1", p.GetBaseURL())
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-2024",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "export default function Hero() {}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p, err := NewProvider("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	res, err := p.Generate(context.Background(), llm.Request{
		Model:     "gpt-4o",
		System:    "you write components",
		Prompt:    "build it",
		Images:    [][]byte{{0x89, 'P', 'N', 'G'}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "export default function Hero() {}", res.Text)
	assert.Equal(t, "gpt-4o-2024", res.Model)
	assert.Equal(t, 10, res.PromptTokens)
	assert.Equal(t, 5, res.CompletionTokens)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 100, body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Contains(t, image["url"], "data:image/png;base64,")
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewProvider("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrBackend)
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorIs(t, err, llm.ErrBackend)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model","created":1,"owned_by":"system"},{"id":"gpt-4o-mini","object":"model","created":1,"owned_by":"system"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	names, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, names)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPingUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewProvider("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = p.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrBackend)
}
