package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"meshbbs/pkg/logger"
)

// Console speaks for a single identity over a line-oriented stream, one
// packet per input line. It is meant for local use from a terminal.
type Console struct {
	identity string
	in       io.Reader
	packets  chan Packet

	mu     sync.Mutex
	out    io.Writer
	closed bool

	startOnce sync.Once
	done      chan struct{}
}

func NewConsole(identity string, in io.Reader, out io.Writer) *Console {
	return &Console{
		identity: identity,
		in:       in,
		out:      out,
		packets:  make(chan Packet),
		done:     make(chan struct{}),
	}
}

func (c *Console) Name() string { return "console" }

// Packets starts reading on first call. The channel closes at end of input
// or after Close.
func (c *Console) Packets() <-chan Packet {
	c.startOnce.Do(func() { go c.read() })
	return c.packets
}

func (c *Console) read() {
	defer close(c.packets)
	sc := bufio.NewScanner(c.in)
	for sc.Scan() {
		p := Packet{ID: uuid.NewString(), From: c.identity, Text: sc.Text(), ReceivedAt: time.Now()}
		select {
		case c.packets <- p:
		case <-c.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		logger.Error("console_read_failed", "error", err)
	}
}

// Send prints payload followed by a blank line so fragments stay apart.
func (c *Console) Send(_ context.Context, to, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if to != c.identity {
		logger.Warn("console_foreign_destination", "to", to)
	}
	_, err := fmt.Fprintf(c.out, "%s\n\n", payload)
	return err
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}
