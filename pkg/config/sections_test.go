package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip pushes a section's data through JSON the way FileStore does.
func roundTrip(t *testing.T, s Section) map[string]any {
	t.Helper()
	raw, err := json.Marshal(s.Data())
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestLimitsSection(t *testing.T) {
	s := NewLimitsSection()
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]any{
		"max_concurrent":     float64(4),
		"max_queue":          "0",
		"rate_window":        "30s",
		"cache_max_bytes":    int64(1 << 20),
		"extraction_timeout": float64(2 * time.Second),
		"unknown_key":        "ignored",
	}))
	got := s.Get()
	assert.Equal(t, 4, got.MaxConcurrent)
	assert.Equal(t, 0, got.MaxQueue)
	assert.Equal(t, 30*time.Second, got.RateWindow)
	assert.Equal(t, int64(1<<20), got.CacheMaxBytes)
	assert.Equal(t, 2*time.Second, got.ExtractionTimeout)
	require.NoError(t, s.Validate())

	copied := NewLimitsSection()
	require.NoError(t, copied.SetData(roundTrip(t, s)))
	assert.Equal(t, got, copied.Get())

	s.Reset()
	assert.Equal(t, DefaultLimits(), s.Get())
}

func TestLimitsSectionRejectsBadInput(t *testing.T) {
	s := NewLimitsSection()

	err := s.SetData(map[string]any{"max_concurrent": 8, "rate_limit": 2.5})
	assert.Error(t, err)
	assert.Equal(t, DefaultLimits(), s.Get(), "partial update applied")

	assert.Error(t, s.SetData(map[string]any{"cache_ttl": "soon"}))
	assert.Error(t, s.SetData(map[string]any{"max_queue": true}))

	for key, value := range map[string]any{
		"max_concurrent":  0,
		"max_queue":       -1,
		"rate_limit":      0,
		"rate_window":     "500ms",
		"max_elements":    0,
		"cache_max_bytes": 0,
		"cache_ttl":       "0s",
		"request_timeout": "0s",
	} {
		s.Reset()
		require.NoError(t, s.SetData(map[string]any{key: value}), key)
		assert.Error(t, s.Validate(), key)
	}
}

func TestLimitsApplyEnv(t *testing.T) {
	env := map[string]string{EnvMaxConcurrent: "6"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s := NewLimitsSection()
	require.NoError(t, s.SetData(map[string]any{"rate_window": "10s"}))
	require.NoError(t, s.ApplyEnv(lookup))
	assert.Equal(t, 6, s.Get().MaxConcurrent)
	assert.Equal(t, 10*time.Second, s.Get().RateWindow, "window kept without a rate override")

	env[EnvRateLimit] = "-3"
	assert.Error(t, s.ApplyEnv(lookup))
}

func TestBrowserSection(t *testing.T) {
	s := NewBrowserSection()
	require.NoError(t, s.Validate())
	assert.True(t, s.Get().Headless)
	assert.NotEmpty(t, s.Get().BlockedHosts)

	require.NoError(t, s.SetData(map[string]any{
		"headless":           "false",
		"install":            true,
		"navigation_timeout": "20s",
		"blocked_hosts":      "*ads.example, *pixel.example",
	}))
	got := s.Get()
	assert.False(t, got.Headless)
	assert.True(t, got.Install)
	assert.Equal(t, 20*time.Second, got.NavigationTimeout)
	assert.Equal(t, []string{"*ads.example", "*pixel.example"}, got.BlockedHosts)

	copied := NewBrowserSection()
	require.NoError(t, copied.SetData(roundTrip(t, s)))
	assert.Equal(t, got, copied.Get())

	got.BlockedHosts[0] = "mutated"
	assert.Equal(t, "*ads.example", s.Get().BlockedHosts[0])

	require.NoError(t, s.SetData(map[string]any{"blocked_hosts": []any{"[unclosed"}}))
	assert.Error(t, s.Validate())

	assert.Error(t, s.SetData(map[string]any{"blocked_hosts": []any{1}}))
	assert.Error(t, s.SetData(map[string]any{"user_agent": 1}))

	s.Reset()
	assert.Equal(t, DefaultBrowserSettings(), s.Get())
}

func TestInferenceSection(t *testing.T) {
	s := NewInferenceSection()
	require.NoError(t, s.Validate())
	assert.Equal(t, BackendOllama, s.Get().Backend)

	require.NoError(t, s.SetData(map[string]any{
		"backend":             "openai",
		"api_key":             "sk",
		"skip_vision":         true,
		"vision_model":        "",
		"timeout":             "45s",
		"max_snapshot_tokens": float64(800),
	}))
	got := s.Get()
	assert.Equal(t, BackendOpenAI, got.Backend)
	assert.True(t, got.SkipVision)
	assert.Equal(t, 45*time.Second, got.Timeout)
	assert.Equal(t, 800, got.MaxSnapshotTokens)
	require.NoError(t, s.Validate(), "vision model may be empty when vision is skipped")

	copied := NewInferenceSection()
	require.NoError(t, copied.SetData(roundTrip(t, s)))
	assert.Equal(t, got, copied.Get())

	require.NoError(t, s.SetData(map[string]any{"skip_vision": false}))
	assert.Error(t, s.Validate())

	s.Reset()
	require.NoError(t, s.SetData(map[string]any{"backend": "bedrock"}))
	assert.Error(t, s.Validate())

	s.Set(DefaultInference())
	assert.Equal(t, DefaultInference(), s.Get())
}
