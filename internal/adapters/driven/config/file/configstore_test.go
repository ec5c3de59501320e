package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))
	return dir
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	store, err := NewConfigStore("")
	if err != nil {
		t.Skip("Existing user config is not parseable")
	}

	assert.Equal(t, filepath.Join(home, ".mpfinder", "config.toml"), store.Path())
}

func TestConfigStore_Load_NonExistent(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, ""))
	require.NoError(t, err)

	_, ok := store.Get("cache_root")
	assert.False(t, ok)
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	_, err := NewConfigStore(writeConfig(t, "this is [[not toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_Load_ReadFileError(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file cannot be read.
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileName), 0o755))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `
name = "finder"
count = 7
ratio = 0.75
whole = 2
enabled = true
tags = ["a", "b", 3]

[nested]
key = "deep"
`))
	require.NoError(t, err)

	assert.Equal(t, "finder", store.GetString("name"))
	assert.Equal(t, 7, store.GetInt("count"))
	assert.True(t, store.GetBool("enabled"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))
	assert.Equal(t, "deep", store.GetString("nested.key"))

	ratio, ok := store.GetFloat("ratio")
	assert.True(t, ok)
	assert.InDelta(t, 0.75, ratio, 1e-9)

	whole, ok := store.GetFloat("whole")
	assert.True(t, ok)
	assert.InDelta(t, 2.0, whole, 1e-9)
}

func TestConfigStore_TypedGetters_WrongType(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `
name = 5
count = "seven"
enabled = "yes"
tags = "single"
`))
	require.NoError(t, err)

	assert.Empty(t, store.GetString("name"))
	assert.Zero(t, store.GetInt("count"))
	assert.False(t, store.GetBool("enabled"))
	assert.Nil(t, store.GetStringSlice("tags"))

	_, ok := store.GetFloat("name")
	assert.True(t, ok)
	_, ok = store.GetFloat("count")
	assert.False(t, ok)
	_, ok = store.GetFloat("missing")
	assert.False(t, ok)
}

func TestConfigStore_GetDate(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `
local = 2023-03-01
local_time = 2023-03-01T10:00:00
offset = 2023-03-01T10:00:00+02:00
text = "2023-03-01"
bad = "March first"
number = 3
`))
	require.NoError(t, err)

	want := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

	got, ok, err := store.GetDate("local")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok, err = store.GetDate("text")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, _, err = store.GetDate("local_time")
	require.NoError(t, err)
	assert.True(t, want.Add(10*time.Hour).Equal(got))

	got, _, err = store.GetDate("offset")
	require.NoError(t, err)
	assert.True(t, want.Add(8*time.Hour).Equal(got))

	_, ok, err = store.GetDate("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = store.GetDate("bad")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = store.GetDate("number")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(writeConfig(t, `count = 1`))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.Equal(t, 1, store.GetInt("count"))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Load())
		}()
	}
	wg.Wait()
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{
			"b": int64(1),
			"c": map[string]any{"d": "x"},
		},
		"e":    true,
		"list": []any{map[string]any{"name": "n"}},
	}, "")

	assert.Equal(t, int64(1), flat["a.b"])
	assert.Equal(t, "x", flat["a.c.d"])
	assert.Equal(t, true, flat["e"])
	assert.Len(t, flat["list"], 1)
	assert.NotContains(t, flat, "a")
}
