package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/types"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func reactCSS() types.ComponentConfig {
	return types.AnalysisRequest{Framework: types.FrameworkReact, Styling: types.StylingCSS}.Config()
}

func artifact(code string) *types.Artifact {
	return &types.Artifact{ID: "a1", Framework: types.FrameworkReact, Styling: types.StylingCSS, Code: code}
}

func snapshot(elements int) *types.DesignSnapshot {
	return &types.DesignSnapshot{PageMetrics: types.PageMetrics{DOMElements: elements}}
}

func TestKeyDeterminism(t *testing.T) {
	cfg := reactCSS()

	k1, err := KeyFor("https://x.com", cfg)
	require.NoError(t, err)
	k2, err := KeyFor("https://x.com", cfg)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(string(k1), "v1:"))

	tracked, err := KeyFor("https://x.com?utm_source=a", cfg)
	require.NoError(t, err)
	assert.Equal(t, k1, tracked, "tracking params must not change the key")

	fragment, err := KeyFor("https://x.com/#top", cfg)
	require.NoError(t, err)
	assert.Equal(t, k1, fragment)

	other, err := KeyFor("https://y.com", cfg)
	require.NoError(t, err)
	assert.NotEqual(t, k1, other)

	vue := cfg
	vue.Framework = types.FrameworkVue
	kv, err := KeyFor("https://x.com", vue)
	require.NoError(t, err)
	assert.NotEqual(t, k1, kv)

	tw := cfg
	tw.Styling = types.StylingTailwind
	kt, err := KeyFor("https://x.com", tw)
	require.NoError(t, err)
	assert.NotEqual(t, k1, kt)

	noTS := cfg
	noTS.TypeScript = false
	kn, err := KeyFor("https://x.com", noTS)
	require.NoError(t, err)
	assert.NotEqual(t, k1, kn)
}

func TestKeyDefaultsMatchExplicitOptions(t *testing.T) {
	yes := true
	explicit := types.AnalysisRequest{
		Framework: types.FrameworkReact,
		Styling:   types.StylingCSS,
		Options:   &types.Options{TypeScript: &yes, Responsive: &yes, Accessibility: &yes},
	}.Config()

	k1, err := KeyFor("https://x.com", reactCSS())
	require.NoError(t, err)
	k2, err := KeyFor("https://x.com", explicit)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestGetAfterSetReturnsStoredEntry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Options{Clock: clk.Now}, nil)
	cfg := reactCSS()

	stored, err := s.Set("https://x.com", cfg, snapshot(10), artifact("<div/>"))
	require.NoError(t, err)
	assert.Equal(t, clk.now, stored.CachedAt)
	assert.Positive(t, stored.SizeBytes)

	got, ok := s.Get("https://x.com?utm_source=newsletter", cfg)
	require.True(t, ok)
	assert.Equal(t, stored, got)
	assert.Equal(t, "<div/>", got.Artifact.Code)
	assert.True(t, s.Has("https://x.com", cfg))
}

func TestTTLExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Options{TTL: time.Hour, Clock: clk.Now}, nil)
	cfg := reactCSS()

	_, err := s.Set("https://x.com", cfg, snapshot(1), artifact("a"))
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	_, ok := s.Get("https://x.com", cfg)
	assert.True(t, ok)

	clk.Advance(time.Minute)
	assert.False(t, s.Has("https://x.com", cfg))
	_, ok = s.Get("https://x.com", cfg)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Stats().Entries, "expired entry removed on read")
	assert.Equal(t, int64(0), s.Stats().TotalSize)
}

func TestSizeBoundEvictsOldestFirst(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := reactCSS()

	probe := New(Options{Clock: clk.Now}, nil)
	e, err := probe.Set("https://a.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	size := e.SizeBytes

	// Room for exactly three entries of this size.
	s := New(Options{MaxSize: 3*size + size/2, Clock: clk.Now}, nil)

	urls := []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com", "https://e.com"}
	for i, u := range urls {
		_, err := s.Set(u, cfg, snapshot(1), artifact("x"))
		require.NoError(t, err)
		st := s.Stats()
		assert.LessOrEqual(t, st.TotalSize, st.MaxSize, "after insert %d", i)
		clk.Advance(time.Second)
	}

	st := s.Stats()
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, int64(2), st.Evictions)
	assert.False(t, s.Has("https://a.com", cfg))
	assert.False(t, s.Has("https://b.com", cfg))
	assert.True(t, s.Has("https://c.com", cfg))
	assert.True(t, s.Has("https://e.com", cfg))
}

func TestEvictionCounterIncreasesPerVictim(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := reactCSS()

	s := New(Options{MaxSize: 1 << 20, Clock: clk.Now}, nil)
	small, err := s.Set("https://a.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = s.Set("https://b.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	clk.Advance(time.Second)

	// An entry that only fits once both others are gone
	bigCode := strings.Repeat("x", int(s.Stats().MaxSize-small.SizeBytes))
	_, err = s.Set("https://big.com", cfg, snapshot(1), artifact(bigCode))
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, int64(2), st.Evictions)
	assert.Equal(t, 1, st.Entries)
	assert.LessOrEqual(t, st.TotalSize, st.MaxSize)
}

func TestOversizeEntryRejected(t *testing.T) {
	s := New(Options{MaxSize: 16}, nil)
	_, err := s.Set("https://x.com", reactCSS(), snapshot(1), artifact("much too large for sixteen bytes"))
	require.ErrorIs(t, err, ErrEntryTooLarge)
	assert.Equal(t, 0, s.Stats().Entries)
}

func TestReplacingKeyKeepsSizeAccurate(t *testing.T) {
	s := New(Options{}, nil)
	cfg := reactCSS()

	_, err := s.Set("https://x.com", cfg, snapshot(1), artifact("first"))
	require.NoError(t, err)
	second, err := s.Set("https://x.com", cfg, snapshot(1), artifact("second version"))
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, second.SizeBytes, st.TotalSize)
	assert.Equal(t, int64(0), st.Evictions)

	got, ok := s.Get("https://x.com", cfg)
	require.True(t, ok)
	assert.Equal(t, "second version", got.Artifact.Code)
}

func TestDeleteAndClear(t *testing.T) {
	s := New(Options{}, nil)
	cfg := reactCSS()

	for _, u := range []string{"https://a.com", "https://b.com", "https://c.com"} {
		_, err := s.Set(u, cfg, snapshot(1), artifact("x"))
		require.NoError(t, err)
	}

	assert.True(t, s.Delete("https://a.com", cfg))
	assert.False(t, s.Delete("https://a.com", cfg))
	assert.Equal(t, 2, s.Clear())
	assert.Equal(t, 0, s.Clear())

	st := s.Stats()
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, int64(0), st.TotalSize)
	assert.Nil(t, st.Oldest)
	assert.Nil(t, st.Newest)
}

func TestStats(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Options{Clock: clk.Now}, nil)
	cfg := reactCSS()

	first := clk.now
	_, err := s.Set("https://a.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = s.Set("https://b.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)

	s.Get("https://a.com", cfg)
	s.Get("https://a.com", cfg)
	s.Get("https://a.com", cfg)
	s.Get("https://missing.com", cfg)

	st := s.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, int64(3), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.75, st.HitRate, 1e-9)
	require.NotNil(t, st.Oldest)
	require.NotNil(t, st.Newest)
	assert.Equal(t, first, *st.Oldest)
	assert.Equal(t, clk.now, *st.Newest)
	assert.Equal(t, int64(DefaultMaxSize), st.MaxSize)
}

func TestPrune(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(Options{TTL: time.Hour, Clock: clk.Now}, nil)
	cfg := reactCSS()

	_, err := s.Set("https://old.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	clk.Advance(30 * time.Minute)
	_, err = s.Set("https://new.com", cfg, snapshot(1), artifact("x"))
	require.NoError(t, err)
	clk.Advance(31 * time.Minute)

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Stats().Entries)
	assert.True(t, s.Has("https://new.com", cfg))
}
