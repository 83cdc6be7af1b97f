// Package pebblestore persists the board in a pebble database, one key per
// message.
package pebblestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"

	"meshbbs/pkg/board"
	"meshbbs/pkg/logger"
)

const (
	msgPrefix = "msg:"
	// msgEnd is the exclusive upper bound for every msg: key.
	msgEnd = "msg;"
)

var ErrClosed = errors.New("pebble store closed")

// Store implements board.Persister. Load and Save after Close return
// ErrClosed.
type Store struct {
	mu   sync.RWMutex
	db   *pebble.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// msg:<topic>:<position> where position 0 is the newest message.
func msgKey(topic string, pos int) []byte {
	return []byte(fmt.Sprintf("%s%s:%09d", msgPrefix, topic, pos))
}

func parseMsgKey(k []byte) (string, int, error) {
	rest := strings.TrimPrefix(string(k), msgPrefix)
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed message key %q", k)
	}
	pos, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed message key %q: %w", k, err)
	}
	return rest[:i], pos, nil
}

// Load scans every message key in order. Keys sort by topic then position, so
// each topic list comes back newest first.
func (s *Store) Load(ctx context.Context) (map[string][]board.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(msgPrefix),
		UpperBound: []byte(msgEnd),
	})
	if err != nil {
		return nil, fmt.Errorf("new iterator: %w", err)
	}
	defer iter.Close()

	out := make(map[string][]board.Message)
	for iter.SeekGE([]byte(msgPrefix)); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !bytes.HasPrefix(iter.Key(), []byte(msgPrefix)) {
			break
		}
		topic, _, err := parseMsgKey(iter.Key())
		if err != nil {
			logger.Warn("pebble_key_skipped", "error", err)
			continue
		}
		var m board.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("pebble_value_skipped", "key", string(iter.Key()), "error", err)
			continue
		}
		out[topic] = append(out[topic], m)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

// Save replaces every stored message in one synced batch, so a crash leaves
// either the previous board or the new one.
func (s *Store) Save(ctx context.Context, topics map[string][]board.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange([]byte(msgPrefix), []byte(msgEnd), nil); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for topic, list := range topics {
		for pos, m := range list {
			v, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("encode message %s/%d: %w", topic, pos, err)
			}
			if err := batch.Set(msgKey(topic, pos), v, nil); err != nil {
				return fmt.Errorf("stage message %s/%d: %w", topic, pos, err)
			}
		}
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		logger.Error("pebble_apply_batch_failed", "error", err)
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
