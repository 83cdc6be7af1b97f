package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureStateDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureStateDirs(root))

	p := PathsFor(root)
	for _, d := range []string{p.Board, filepath.Dir(p.Snapshot), p.Crash} {
		fi, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
	// idempotent
	require.NoError(t, EnsureStateDirs(root))
}

func TestEnsureStateDirsRejectsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "board"), []byte("x"), 0o600))
	assert.ErrorContains(t, EnsureStateDirs(root), "not a directory")
}

func TestEnsureStateDirsRejectsSymlink(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(root, "board")))
	assert.ErrorContains(t, EnsureStateDirs(root), "symlink")
}

func TestWriteCrashDump(t *testing.T) {
	root := t.TempDir()
	path, err := WriteCrashDump(root, "open board", errors.New("disk gone"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, PathsFor(root).Crash))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "reason: open board")
	assert.Contains(t, string(b), "error: disk gone")
	assert.Contains(t, string(b), "goroutine stacks")

	left, err := filepath.Glob(filepath.Join(PathsFor(root).Crash, ".crash-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}
