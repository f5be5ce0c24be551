package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.hcl"))
	writeFile(t, filepath.Join(root, "nested", "a.hcl"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "a.hcl"),
	}, files)

	assert.Panics(t, func() { _, _ = FindFilesByExtension(root, "") })
}

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	single := filepath.Join(root, "single.hcl")
	writeFile(t, single)
	writeFile(t, filepath.Join(root, "dir", "x.hcl"))
	writeFile(t, filepath.Join(root, "dir", "y.txt"))

	files, err := CollectFiles([]string{
		single,
		filepath.Join(root, "dir"),
		filepath.Join(root, "missing"),
		single,
	}, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{single, filepath.Join(root, "dir", "x.hcl")}, files)
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pipeline.dot")
	writeFile(t, file)
	writeFile(t, filepath.Join(root, "bindings", "sub", "s.hcl"))

	dirs, err := WatchDirs(file, filepath.Join(root, "bindings"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "bindings"),
		filepath.Join(root, "bindings", "sub"),
	}, dirs)

	_, err = WatchDirs(filepath.Join(root, "missing"))
	require.Error(t, err)
}
