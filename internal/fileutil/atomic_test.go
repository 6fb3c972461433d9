package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_ReplacesContents(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644)) //nolint:gosec // G306: Test file, relaxed perms OK
	require.NoError(t, WriteFile(target, []byte("new"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: Test path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFile_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "home", "nested", "config.yaml")
	require.NoError(t, WriteFile(target, []byte("network: base\n"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: Test path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "network: base\n", string(data))
}

func TestWriteFile_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(dir, "a.yaml"), []byte("a"), 0o600))
	require.NoError(t, WriteFile(filepath.Join(dir, "a.yaml"), []byte("b"), 0o600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.yaml", entries[0].Name())
}

func TestWriteFile_EmptyPath(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, WriteFile("", []byte("data"), 0o600), ErrEmptyPath)
}
