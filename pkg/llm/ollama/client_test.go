package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/llm"
)

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:           "llava:7b",
			Response:        "a hero section",
			Done:            true,
			TotalDuration:   int64(1500 * time.Millisecond),
			PromptEvalCount: 12,
			EvalCount:       34,
		})
	}))
	defer srv.Close()

	temp := 0.3
	c := NewClient(WithHost(srv.URL + "/"))
	res, err := c.Generate(context.Background(), llm.Request{
		Model:       "llava:7b",
		Prompt:      "describe",
		Images:      [][]byte{[]byte("png")},
		Temperature: &temp,
		MaxTokens:   2000,
	})
	require.NoError(t, err)

	assert.Equal(t, "a hero section", res.Text)
	assert.Equal(t, 1500*time.Millisecond, res.Duration)
	assert.Equal(t, 12, res.PromptTokens)
	assert.Equal(t, 34, res.CompletionTokens)

	assert.False(t, got.Stream)
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte("png"))}, got.Images)
	require.NotNil(t, got.Options)
	assert.Equal(t, 2000, got.Options.NumPredict)
	assert.InDelta(t, 0.3, *got.Options.Temperature, 1e-9)
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithHost(srv.URL)).Generate(context.Background(), llm.Request{Model: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrBackend)

	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "model 'nope' not found", se.Body)
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithHost(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Generate(context.Background(), llm.Request{Model: "llava:7b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrTimeout)
}

func TestGenerateUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithHost(url)).Generate(context.Background(), llm.Request{Model: "llava:7b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llava:7b","size":1},{"name":"codellama:13b","size":2}]}`))
	}))
	defer srv.Close()

	c := NewClient(WithHost(srv.URL))
	names, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llava:7b", "codellama:13b"}, names)

	ok, err := c.HasModel(context.Background(), "codellama:13b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.HasModel(context.Background(), "mistral")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClientHostResolution(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	assert.Equal(t, DefaultHost, NewClient().Host())

	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434/")
	assert.Equal(t, "http://gpu-box:11434", NewClient().Host())
	assert.Equal(t, "http://explicit:1", NewClient(WithHost("http://explicit:1")).Host())
}
