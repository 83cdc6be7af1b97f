// Package transport moves text packets between radio-side identities and
// the BBS. A Transport delivers inbound packets and accepts single outbound
// payloads; the Outbox paces multi-fragment replies on top of it.
package transport

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("transport closed")

// Packet is one inbound text message.
type Packet struct {
	ID         string
	From       string
	Text       string
	ReceivedAt time.Time
}

// Sender delivers one payload to a destination identity.
type Sender interface {
	Send(ctx context.Context, to, payload string) error
}

type Transport interface {
	Sender
	// Packets is closed when the transport stops delivering.
	Packets() <-chan Packet
	Name() string
	Close() error
}
