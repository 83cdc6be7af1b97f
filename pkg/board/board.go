// Package board holds the public message board: fixed topics, newest-first
// message lists, paging and persistence.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meshbbs/pkg/logger"
)

type Store struct {
	mu       sync.RWMutex
	topics   []Topic
	index    map[string]int
	messages map[string][]Message

	general    string
	subjectMax int
	pageSize   int

	saveMu    sync.Mutex
	persister Persister
	now       func() time.Time
}

// New builds an empty board. A nil persister keeps the board in memory.
func New(cfg Config, p Persister) *Store {
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	s := &Store{
		topics:     append([]Topic(nil), topics...),
		index:      make(map[string]int, len(topics)),
		messages:   make(map[string][]Message, len(topics)),
		general:    cfg.GeneralTopic,
		subjectMax: cfg.SubjectMax,
		pageSize:   cfg.PageSize,
		persister:  p,
		now:        time.Now,
	}
	for i, t := range s.topics {
		s.index[t.ID] = i
		s.messages[t.ID] = nil
	}
	if s.general == "" {
		s.general = DefaultGeneral
	}
	if s.subjectMax <= 0 {
		s.subjectMax = DefaultSubjectMax
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	return s
}

// SetClock replaces the timestamp source for new posts.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// PageSize is the configured listing page size.
func (s *Store) PageSize() int { return s.pageSize }

// SubjectMax is the subject length limit in characters.
func (s *Store) SubjectMax() int { return s.subjectMax }

// Topics returns the topics in canonical menu order.
func (s *Store) Topics() []Topic {
	return append([]Topic(nil), s.topics...)
}

// Topic looks up a topic by id.
func (s *Store) Topic(id string) (Topic, bool) {
	i, ok := s.index[id]
	if !ok {
		return Topic{}, false
	}
	return s.topics[i], true
}

// ListTopics maps topic id to display name.
func (s *Store) ListTopics() map[string]string {
	out := make(map[string]string, len(s.topics))
	for _, t := range s.topics {
		out[t.ID] = t.Name
	}
	return out
}

// Post prepends a message to topic. The subject is cut to SubjectMax
// characters. Callers persist with Save.
func (s *Store) Post(topic, author, subject, body string) (Message, error) {
	if _, ok := s.index[topic]; !ok {
		return Message{}, fmt.Errorf("post to %q: %w", topic, ErrInvalidTopic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Message{
		Topic:     topic,
		Author:    author,
		Subject:   truncate(subject, s.subjectMax),
		Body:      body,
		CreatedAt: s.now(),
	}
	list := make([]Message, 0, len(s.messages[topic])+1)
	list = append(list, m)
	s.messages[topic] = append(list, s.messages[topic]...)
	return m, nil
}

// Count returns the number of messages in topic.
func (s *Store) Count(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[topic])
}

// MaxPages returns ceil(count/pageSize); zero for an empty topic.
func (s *Store) MaxPages(topic string, pageSize int) int {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	n := s.Count(topic)
	return (n + pageSize - 1) / pageSize
}

// Page returns the messages on 0-based page pageIndex. Out of range pages are
// empty, not an error.
func (s *Store) Page(topic string, pageIndex, pageSize int) ([]Message, error) {
	if _, ok := s.index[topic]; !ok {
		return nil, fmt.Errorf("page of %q: %w", topic, ErrInvalidTopic)
	}
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[topic]
	start := pageIndex * pageSize
	if pageIndex < 0 || start >= len(list) {
		return nil, nil
	}
	end := min(start+pageSize, len(list))
	return append([]Message(nil), list[start:end]...), nil
}

// MessageAt returns the n-th message (1-based, newest first).
func (s *Store) MessageAt(topic string, n int) (Message, error) {
	if _, ok := s.index[topic]; !ok {
		return Message{}, fmt.Errorf("message in %q: %w", topic, ErrInvalidTopic)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[topic]
	if n < 1 || n > len(list) {
		return Message{}, fmt.Errorf("message %d of %d in %q: %w", n, len(list), topic, ErrOutOfRange)
	}
	return list[n-1], nil
}

// ActivitySummary maps topic id to message count.
func (s *Store) ActivitySummary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.topics))
	for _, t := range s.topics {
		out[t.ID] = len(s.messages[t.ID])
	}
	return out
}

// Snapshot copies the current board.
func (s *Store) Snapshot() map[string][]Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Message, len(s.messages))
	for id, list := range s.messages {
		out[id] = append([]Message(nil), list...)
	}
	return out
}

// Load replaces the board with the persisted state. Unknown topics are
// dropped, missing ones start empty, and an empty general topic gets the
// welcome message. A failed load is logged, the board starts fresh and the
// error is still returned to the caller.
func (s *Store) Load(ctx context.Context) error {
	var loaded map[string][]Message
	var loadErr error
	if s.persister != nil {
		loaded, loadErr = s.persister.Load(ctx)
		if loadErr != nil {
			logger.Error("board_load_failed", "error", loadErr)
			loaded = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.topics {
		s.messages[t.ID] = nil
	}
	for id, list := range loaded {
		if _, ok := s.index[id]; !ok {
			logger.Warn("board_unknown_topic_dropped", "topic", id, "count", len(list))
			continue
		}
		s.messages[id] = append([]Message(nil), list...)
	}
	if _, ok := s.index[s.general]; ok && len(s.messages[s.general]) == 0 {
		s.messages[s.general] = []Message{{
			Topic:     s.general,
			Author:    WelcomeAuthor,
			Subject:   WelcomeSubject,
			Body:      WelcomeBody,
			CreatedAt: s.now(),
		}}
		logger.Info("board_welcome_injected", "topic", s.general)
	}
	total := 0
	for _, list := range s.messages {
		total += len(list)
	}
	logger.Info("board_loaded", "topics", len(s.topics), "messages", total)
	return loadErr
}

// Save writes a snapshot through the persister. Saves are serialized; reads
// and posts continue while one is in flight.
func (s *Store) Save(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.persister.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}

// Close releases the persister.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
