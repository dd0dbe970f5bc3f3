package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSetAndGet_PersistsImmediately(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("dropbox.root", "/Projects"))

	assert.Equal(t, "/Projects", store.GetString("dropbox.root"))
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "/Projects")
}

func TestLoad_FlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[dropbox]
root = "/Projects"
requests_per_second = 5

[search]
min_score = 0.3
rerank = true
extensions = [".txt", ".md"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/Projects", store.GetString("dropbox.root"))
	assert.Equal(t, 5, store.GetInt("dropbox.requests_per_second"))
	assert.Equal(t, 0.3, store.GetFloat("search.min_score"))
	assert.True(t, store.GetBool("search.rerank"))
	assert.Equal(t, []string{".txt", ".md"}, store.GetStringSlice("search.extensions"))
}

func TestGetters_MissingOrMistypedKeysReturnZeroValues(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("name", "north"))

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("name"))
	assert.Equal(t, 0.0, store.GetFloat("name"))
	assert.False(t, store.GetBool("name"))
	assert.Nil(t, store.GetStringSlice("name"))
}

func TestGetFloat_AcceptsIntegerValues(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("alpha", int64(2)))

	assert.Equal(t, 2.0, store.GetFloat("alpha"))
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestLoad_AfterSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("sync.interval_minutes", int64(1440)))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 1440, reopened.GetInt("sync.interval_minutes"))
}

func TestFlattenMap_DeepNesting(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": int64(1)},
		},
		"d": "top",
	}, "")

	assert.Equal(t, int64(1), flat["a.b.c"])
	assert.Equal(t, "top", flat["d"])
}
