package token

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.False(t, s.HasSession())

	pair := Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, s.Set(pair))
	assert.True(t, s.HasSession())
	assert.Equal(t, pair, s.Pair())

	// A fresh store sees the persisted pair.
	reloaded, err := NewStore(path)
	require.NoError(t, err)
	assert.True(t, reloaded.HasSession())
	assert.Equal(t, pair, reloaded.Pair())
}

func TestStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(Pair{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, s.Clear())
	assert.False(t, s.HasSession())
	assert.Equal(t, Pair{}, s.Pair())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "token file should be removed")

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestStoreMissingFile(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "does", "not", "exist.json"))
	require.NoError(t, err)
	assert.False(t, s.HasSession())
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0600))

	s, err := NewStore(path)
	require.NoError(t, err, "corrupt token file should not be fatal")
	assert.False(t, s.HasSession())
}

func TestStoreCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "tokens.json")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(Pair{AccessToken: "a"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(Pair{AccessToken: "a", RefreshToken: "r"}))
	assert.True(t, s.HasSession())
	require.NoError(t, s.Clear())
	assert.False(t, s.HasSession())
}
