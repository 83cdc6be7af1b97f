package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshbbs/pkg/config"
	"meshbbs/pkg/transport"
)

type fakeLink struct {
	packets chan transport.Packet
	once    sync.Once

	mu   sync.Mutex
	sent map[string][]string
}

func newFakeLink() *fakeLink {
	return &fakeLink{packets: make(chan transport.Packet, 16), sent: map[string][]string{}}
}

func (f *fakeLink) Name() string                      { return "fake" }
func (f *fakeLink) Packets() <-chan transport.Packet { return f.packets }
func (f *fakeLink) Close() error {
	f.once.Do(func() { close(f.packets) })
	return nil
}

func (f *fakeLink) Send(_ context.Context, to, payload string) error {
	f.mu.Lock()
	f.sent[to] = append(f.sent[to], payload)
	f.mu.Unlock()
	return nil
}

func (f *fakeLink) transcript(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.sent[to], "\n")
}

// gatedLink parks the pump inside handle once armed, until release closes.
type gatedLink struct {
	*fakeLink
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLink) Name() string {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.fakeLink.Name()
}

func testConfig(t *testing.T, dir string) config.EffectiveConfigResult {
	t.Helper()
	zero := config.Duration(0)
	eff := config.EffectiveConfigResult{Config: &config.Config{
		Data:      config.DataConfig{Dir: dir, Backend: config.BackendFile},
		Transport: config.TransportConfig{Kind: config.TransportConsole, ChunkDelay: &zero},
	}}
	require.NoError(t, config.ValidateConfig(eff))
	return eff
}

func newTestApp(t *testing.T, dir string, link *fakeLink) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t, dir), Options{
		Link:        link,
		DisableHTTP: true,
		BannerOut:   io.Discard,
	})
	require.NoError(t, err)
	return a
}

func TestPumpPostsAndPersists(t *testing.T) {
	dir := t.TempDir()
	link := newFakeLink()
	a := newTestApp(t, dir, link)

	for _, text := range []string{"hi", "B", "P", "G", "Hello mesh", "first line", "END"} {
		link.packets <- transport.Packet{From: "!a1b2c3d4", Text: text}
	}
	require.NoError(t, link.Close())

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the link closed")
	}

	out := link.transcript("!a1b2c3d4")
	assert.Contains(t, out, "MESH-BBS")
	assert.Contains(t, out, "Enter Subject:")
	assert.Contains(t, out, "SUCCESS: Posted 'Hello mesh' to 'General Chat'.")
	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, "stopped", a.Status())

	b := newTestApp(t, dir, newFakeLink())
	defer func() { _ = b.Shutdown(context.Background()) }()
	require.Equal(t, 2, b.board.Count("G")) // welcome + post
	m, err := b.board.MessageAt("G", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello mesh", m.Subject)
	assert.Equal(t, "first line", m.Body)
}

func TestRepliesAreIsolatedPerIdentity(t *testing.T) {
	link := newFakeLink()
	a := newTestApp(t, t.TempDir(), link)

	link.packets <- transport.Packet{From: "!aaaa0001", Text: "hi"}
	link.packets <- transport.Packet{From: "!aaaa0002", Text: "hi"}
	link.packets <- transport.Packet{From: "!aaaa0001", Text: "G"}
	require.NoError(t, link.Close())
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, link.transcript("!aaaa0001"), "Games Center")
	assert.NotContains(t, link.transcript("!aaaa0002"), "Games Center")
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestRunReturnsOnCancel(t *testing.T) {
	link := newFakeLink()
	a := newTestApp(t, t.TempDir(), link)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run ignored cancellation")
	}
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	eff := testConfig(t, t.TempDir())
	eff.Config.Data.Backend = "sqlite"
	_, err := New(context.Background(), eff, Options{Link: newFakeLink(), DisableHTTP: true})
	assert.Error(t, err)
}

func TestShutdownWaitsForInFlightPost(t *testing.T) {
	const who = "!a1b2c3d4"
	dir := t.TempDir()
	link := &gatedLink{fakeLink: newFakeLink(), entered: make(chan struct{}), release: make(chan struct{})}
	a, err := New(context.Background(), testConfig(t, dir), Options{
		Link:        link,
		DisableHTTP: true,
		BannerOut:   io.Discard,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	for _, text := range []string{"hi", "B", "P", "G", "Hello mesh", "first line"} {
		link.packets <- transport.Packet{From: who, Text: text}
	}
	require.Eventually(t, func() bool {
		return strings.Contains(link.transcript(who), "Chunk 1 collected")
	}, 5*time.Second, 10*time.Millisecond)

	link.armed.Store(true)
	link.packets <- transport.Packet{From: who, Text: "END"}
	select {
	case <-link.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("pump never picked up END")
	}

	cancel()
	require.NoError(t, <-done)

	stopped := make(chan error, 1)
	go func() { stopped <- a.Shutdown(context.Background()) }()
	select {
	case <-stopped:
		t.Fatal("shutdown finished while a dispatch was in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(link.release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish after the dispatch completed")
	}

	assert.Contains(t, link.transcript(who), "SUCCESS: Posted 'Hello mesh' to 'General Chat'.")

	b := newTestApp(t, dir, newFakeLink())
	defer func() { _ = b.Shutdown(context.Background()) }()
	require.Equal(t, 2, b.board.Count("G"))
	m, err := b.board.MessageAt("G", 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello mesh", m.Subject)
}
