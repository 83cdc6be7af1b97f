package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu      sync.Mutex
	data    map[string][]Message
	loadErr error
	saveErr error
	saves   int
}

func (m *memPersister) Load(context.Context) (map[string][]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func (m *memPersister) Save(_ context.Context, topics map[string][]Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = topics
	return nil
}

func (m *memPersister) Close() error { return nil }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Config{}, nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	s.SetClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	})
	return s
}

func TestTopicsCanonicalOrder(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for _, tp := range s.Topics() {
		ids = append(ids, tp.ID)
	}
	require.Equal(t, []string{"G", "N", "T", "O", "H"}, ids)
	require.Equal(t, "Tech & Mesh Info", s.ListTopics()["T"])
}

func TestPostValidatesAndTruncates(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Post("Z", "!a", "subj", "body")
	require.ErrorIs(t, err, ErrInvalidTopic)

	m, err := s.Post("G", "!a", "this subject is definitely longer than allowed", "body")
	require.NoError(t, err)
	require.Len(t, []rune(m.Subject), DefaultSubjectMax)
	require.Equal(t, "this subject is definitely l", m.Subject)

	m, err = s.Post("G", "!a", "ñññññññññññññññññññññññññññññññ", "b")
	require.NoError(t, err)
	require.Equal(t, 28, len([]rune(m.Subject)))
}

func TestPaginationNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 9; i++ {
		_, err := s.Post("N", "!a", fmt.Sprintf("msg %d", i), "b")
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.MaxPages("N", 4))

	page, err := s.Page("N", 1, 4)
	require.NoError(t, err)
	require.Len(t, page, 4)
	// positions 5..8 in newest-first order are posts 5,4,3,2
	assert.Equal(t, "msg 5", page[0].Subject)
	assert.Equal(t, "msg 2", page[3].Subject)

	last, err := s.Page("N", 2, 4)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "msg 1", last[0].Subject)

	empty, err := s.Page("N", 3, 4)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = s.Page("Q", 0, 4)
	require.ErrorIs(t, err, ErrInvalidTopic)
}

func TestMessageAt(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.Post("H", "!a", "first", "b")
	_, _ = s.Post("H", "!a", "second", "b")

	m, err := s.MessageAt("H", 1)
	require.NoError(t, err)
	require.Equal(t, "second", m.Subject)

	for _, n := range []int{0, -1, 3} {
		_, err := s.MessageAt("H", n)
		require.ErrorIs(t, err, ErrOutOfRange, "n=%d", n)
	}
	_, err = s.MessageAt("X", 1)
	require.ErrorIs(t, err, ErrInvalidTopic)
}

func TestActivitySummary(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.Post("O", "!a", "s", "b")
	_, _ = s.Post("O", "!a", "s", "b")
	_, _ = s.Post("T", "!a", "s", "b")
	require.Equal(t, map[string]int{"G": 0, "N": 0, "T": 1, "O": 2, "H": 0}, s.ActivitySummary())
}

func TestLoadInjectsWelcome(t *testing.T) {
	p := &memPersister{data: map[string][]Message{
		"N":     {{Topic: "N", Subject: "kept"}},
		"STALE": {{Topic: "STALE", Subject: "dropped"}},
	}}
	s := New(Config{}, p)
	require.NoError(t, s.Load(context.Background()))

	g, err := s.MessageAt("G", 1)
	require.NoError(t, err)
	require.Equal(t, WelcomeAuthor, g.Author)
	require.Equal(t, WelcomeSubject, g.Subject)
	require.Equal(t, 1, s.Count("N"))
	_, ok := s.Snapshot()["STALE"]
	require.False(t, ok)
}

func TestLoadKeepsExistingGeneral(t *testing.T) {
	p := &memPersister{data: map[string][]Message{"G": {{Topic: "G", Subject: "real"}}}}
	s := New(Config{}, p)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, 1, s.Count("G"))
	m, _ := s.MessageAt("G", 1)
	require.Equal(t, "real", m.Subject)
}

func TestLoadFailureStartsFresh(t *testing.T) {
	boom := errors.New("disk gone")
	s := New(Config{}, &memPersister{loadErr: boom})
	err := s.Load(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, s.Count("G"))
}

func TestSavePersistsSnapshot(t *testing.T) {
	p := &memPersister{}
	s := New(Config{}, p)
	require.NoError(t, s.Load(context.Background()))
	_, err := s.Post("T", "!abcd", "lora", "915MHz")
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background()))
	require.Equal(t, 1, p.saves)
	require.Len(t, p.data["T"], 1)

	p.saveErr = errors.New("read-only fs")
	require.Error(t, s.Save(context.Background()))
	// in-memory state stays authoritative
	require.Equal(t, 1, s.Count("T"))
}

func TestConcurrentPostsAndReads(t *testing.T) {
	s := New(Config{}, &memPersister{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Post("G", "!a", "s", "b")
				_ = s.Save(context.Background())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Page("G", 0, 4)
				_ = s.ActivitySummary()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 400, s.Count("G"))
}
