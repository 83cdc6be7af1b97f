package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnsureStateDirs creates the data layout under root. Each directory must be
// a real directory, not a symlink, and writable.
func EnsureStateDirs(root string) error {
	p := PathsFor(root)
	dirs := []string{p.Board, filepath.Dir(p.Snapshot), p.Crash}

	for _, d := range dirs {
		if fi, err := os.Lstat(d); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", d)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", d)
			}
		}

		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", d, err)
		}

		tmp, err := os.CreateTemp(d, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", d, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	return nil
}

var (
	PathsVar Paths
	initOnce sync.Once
	initErr  error
)

// Init resolves root, records PathsVar and ensures the layout. Only the
// first call does any work.
func Init(root string) error {
	initOnce.Do(func() {
		path := strings.TrimSpace(root)
		if path == "" {
			path = "./.meshbbs"
		}
		path = filepath.Clean(path)
		PathsVar = PathsFor(path)
		initErr = EnsureStateDirs(path)
	})
	return initErr
}
