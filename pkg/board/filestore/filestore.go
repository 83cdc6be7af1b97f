// Package filestore persists the board as a single human-readable YAML
// snapshot.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"meshbbs/pkg/board"
)

type snapshot struct {
	SavedAt time.Time                  `yaml:"saved_at"`
	Topics  map[string][]board.Message `yaml:"topics"`
}

// Store implements board.Persister on one file.
type Store struct {
	path string
	now  func() time.Time
}

// New returns a Store writing to path. The parent directory is created on
// first save.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path is the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file is an empty board.
func (s *Store) Load(_ context.Context) (map[string][]board.Message, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]board.Message{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := yaml.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if snap.Topics == nil {
		snap.Topics = map[string][]board.Message{}
	}
	return snap.Topics, nil
}

// Save writes to a temp file in the same directory and renames it over the
// snapshot, so readers never observe a partial file.
func (s *Store) Save(ctx context.Context, topics map[string][]board.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := yaml.Marshal(snapshot{SavedAt: s.now().UTC(), Topics: topics})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".board-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
