package session

import (
	"sync"
	"time"
)

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Store maps identities to sessions. Work on one identity is serialized;
// different identities proceed in parallel.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry), now: time.Now}
}

// SetClock replaces the time source used for LastSeen.
func (st *Store) SetClock(now func() time.Time) {
	st.mu.Lock()
	st.now = now
	st.mu.Unlock()
}

func (st *Store) acquire(identity string) (*entry, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[identity]
	if !ok {
		e = &entry{s: &Session{Identity: identity, Menu: MenuMain}}
		st.sessions[identity] = e
	}
	return e, !ok
}

// Do runs fn with exclusive access to identity's session, creating it on
// first sight. created is true for that first call.
func (st *Store) Do(identity string, fn func(s *Session, created bool)) {
	for {
		e, created := st.acquire(identity)
		e.mu.Lock()
		// a sweep may have dropped the entry between acquire and lock
		st.mu.Lock()
		live := st.sessions[identity] == e
		now := st.now()
		st.mu.Unlock()
		if !live {
			e.mu.Unlock()
			continue
		}
		e.s.LastSeen = now
		fn(e.s, created)
		e.mu.Unlock()
		return
	}
}

// Peek returns a copy of identity's session.
func (st *Store) Peek(identity string) (Session, bool) {
	st.mu.Lock()
	e, ok := st.sessions[identity]
	st.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.s, true
}

// Len is the number of tracked identities.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle longer than idle and returns how many went.
// Sessions mid-dispatch are skipped.
func (st *Store) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-idle)
	n := 0
	for id, e := range st.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.s.LastSeen.Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}
