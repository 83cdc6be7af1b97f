package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshbbs/pkg/session"
	"meshbbs/pkg/telemetry"
)

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New(session.NewStore(), time.Minute, "every tuesday")
	assert.Error(t, err)
}

func TestRunOnceEvictsIdle(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	st := session.NewStore()
	st.SetClock(func() time.Time { return now })
	st.Do("!old", func(*session.Session, bool) {})

	now = now.Add(20 * time.Minute)
	st.Do("!new", func(*session.Session, bool) {})
	now = now.Add(15 * time.Minute)

	sw, err := New(st, 30*time.Minute, "*/5 * * * *")
	require.NoError(t, err)

	before := testutil.ToFloat64(telemetry.SessionsEvicted)
	assert.Equal(t, 1, sw.RunOnce())
	assert.Equal(t, before+1, testutil.ToFloat64(telemetry.SessionsEvicted))
	assert.Equal(t, float64(1), testutil.ToFloat64(telemetry.SessionsActive))

	_, ok := st.Peek("!old")
	assert.False(t, ok)
	_, ok = st.Peek("!new")
	assert.True(t, ok)
}

func TestEvictedIdentityIsFirstContactAgain(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	st := session.NewStore()
	st.SetClock(func() time.Time { return now })
	st.Do("!a", func(*session.Session, bool) {})

	now = now.Add(time.Hour)
	sw, err := New(st, 30*time.Minute, "*/5 * * * *")
	require.NoError(t, err)
	sw.RunOnce()

	var created bool
	st.Do("!a", func(_ *session.Session, c bool) { created = c })
	assert.True(t, created)
}

func TestZeroTTLDisablesSchedule(t *testing.T) {
	st := session.NewStore()
	st.Do("!a", func(*session.Session, bool) {})
	sw, err := New(st, 0, "*/5 * * * *")
	require.NoError(t, err)

	cancel := sw.Start(context.Background())
	cancel()
	assert.Equal(t, 0, sw.RunOnce())
	assert.Equal(t, 1, st.Len())
}

func TestStartStopsOnCancel(t *testing.T) {
	sw, err := New(session.NewStore(), time.Minute, "*/5 * * * *")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	stop := sw.Start(ctx)
	cancel()
	stop()
}
