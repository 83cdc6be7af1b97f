package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meshbbs/pkg/blackjack"
)

func TestDoCreatesOnFirstSight(t *testing.T) {
	st := NewStore()
	var created []bool
	for i := 0; i < 2; i++ {
		st.Do("!a1b2", func(s *Session, c bool) {
			created = append(created, c)
			require.Equal(t, "!a1b2", s.Identity)
		})
	}
	require.Equal(t, []bool{true, false}, created)
	require.Equal(t, 1, st.Len())
}

func TestDoSerializesPerIdentity(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Do("!same", func(s *Session, _ bool) {
				// non-atomic read-modify-write; only safe under exclusive access
				s.Chips = s.Chips + 1
			})
		}()
	}
	wg.Wait()
	got, ok := st.Peek("!same")
	require.True(t, ok)
	require.Equal(t, 50, got.Chips)
}

func TestSweepEvictsIdle(t *testing.T) {
	st := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })

	st.Do("!old", func(*Session, bool) {})
	now = now.Add(20 * time.Minute)
	st.Do("!new", func(*Session, bool) {})
	now = now.Add(15 * time.Minute)

	require.Equal(t, 0, st.Sweep(0))
	require.Equal(t, 1, st.Sweep(30*time.Minute))
	_, ok := st.Peek("!old")
	require.False(t, ok)
	_, ok = st.Peek("!new")
	require.True(t, ok)

	var created bool
	st.Do("!old", func(_ *Session, c bool) { created = c })
	require.True(t, created, "evicted identity is first contact again")
}

func TestClearInteractionScratchBanksChips(t *testing.T) {
	g, err := blackjack.New(140)
	require.NoError(t, err)
	s := &Session{
		Mode: ModeBlackjackTurn,
		Post: &PendingPost{Topic: "G"},
		Game: g,
	}
	s.ClearInteractionScratch()
	require.Equal(t, ModeNone, s.Mode)
	require.Nil(t, s.Post)
	require.Nil(t, s.Game)
	require.True(t, s.HasChips)
	require.Equal(t, 140, s.Chips)

	s.DropChips()
	require.False(t, s.HasChips)
}

func TestModeClassification(t *testing.T) {
	for _, m := range []Mode{ModePostingTopic, ModePostingSubject, ModePostingBody} {
		require.True(t, m.IsPosting(), m.String())
		require.False(t, m.IsGame(), m.String())
	}
	for _, m := range []Mode{ModeBlackjackBetting, ModeBlackjackTurn, ModeBlackjackEnd} {
		require.True(t, m.IsGame(), m.String())
		require.False(t, m.IsPosting(), m.String())
	}
	require.False(t, ModeNone.IsGame())
	require.False(t, ModeNone.IsPosting())
}
