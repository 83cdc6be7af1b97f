package state

import "path/filepath"

// Paths is the on-disk layout under the data directory.
type Paths struct {
	Root     string
	Board    string // pebble board database
	Snapshot string // yaml board snapshot for the file backend
	State    string
	Crash    string // startup crash dumps
}

func PathsFor(root string) Paths {
	statePath := filepath.Join(root, "state")
	return Paths{
		Root:     root,
		Board:    filepath.Join(root, "board"),
		Snapshot: filepath.Join(root, "snapshots", "board.yaml"),
		State:    statePath,
		Crash:    filepath.Join(statePath, "crash"),
	}
}
