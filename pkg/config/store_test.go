package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")

		store, err := NewFileStore(path)
		require.NoError(t, err)
		assert.Equal(t, path, store.Path())
		assert.False(t, store.IsModified())
	})

	t.Run("default path", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		store, err := NewFileStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".mimic", "config.json"), store.Path())
	})

	t.Run("loads existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		body := `{"version":"1.0","sections":{"limits":{"max_concurrent":5}}}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))

		store, err := NewFileStore(path)
		require.NoError(t, err)

		data, err := store.GetSection("limits")
		require.NoError(t, err)
		assert.Equal(t, float64(5), data["max_concurrent"])
	})

	t.Run("rejects corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewFileStore(path)
		assert.Error(t, err)
	})
}

func TestFileStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SetSection("inference", map[string]interface{}{
		"backend": "openai",
		"api_key": "sk-test",
	}))
	assert.True(t, store.IsModified())

	require.NoError(t, store.Save())
	assert.False(t, store.IsModified())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)
	data, err := reloaded.GetSection("inference")
	require.NoError(t, err)
	assert.Equal(t, "openai", data["backend"])
	assert.Equal(t, "sk-test", data["api_key"])
}

func TestFileStore_Load(t *testing.T) {
	t.Run("missing file clears data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, err := NewFileStore(path)
		require.NoError(t, err)
		require.NoError(t, store.SetSection("a", map[string]interface{}{"k": "v"}))

		require.NoError(t, store.Load())
		all, err := store.GetAll()
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.False(t, store.IsModified())
	})

	t.Run("null sections", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.0","sections":null}`), 0600))

		store, err := NewFileStore(path)
		require.NoError(t, err)
		all, err := store.GetAll()
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestFileStore_CopiesData(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	in := map[string]interface{}{"k": "v"}
	require.NoError(t, store.SetSection("s", in))
	in["k"] = "changed"

	out, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "v", out["k"])

	out["k"] = "changed"
	again, err := store.GetSection("s")
	require.NoError(t, err)
	assert.Equal(t, "v", again["k"])

	missing, err := store.GetSection("missing")
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestFileStore_SetAll(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.NoError(t, store.SetSection("old", map[string]interface{}{"k": 1}))

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{
		"a": {"x": 1},
		"b": {"y": 2},
	}))

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "old")
	assert.Equal(t, 2, all["b"]["y"])
}
