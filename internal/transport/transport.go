// Package transport defines the point-to-point session abstraction the
// handshake drives. A session is negotiated out of band: the offer and answer
// descriptors travel inside optical codes, not over a signaling server.
//
// Inbound traffic and channel state changes are surfaced as a typed event
// stream consumed synchronously by the state machine, instead of nested
// callbacks.
package transport

import "context"

// ChannelState describes the underlying data channel.
type ChannelState string

const (
	StateConnecting   ChannelState = "connecting"
	StateOpen         ChannelState = "open"
	StateDisconnected ChannelState = "disconnected"
	StateClosed       ChannelState = "closed"
)

// EventKind discriminates session events.
type EventKind int

const (
	// EventStateChange signals a ChannelState transition.
	EventStateChange EventKind = iota + 1
	// EventMessage carries one inbound application payload.
	EventMessage
)

type Event struct {
	Kind  EventKind
	State ChannelState
	Data  []byte
}

// Session is one point-to-point data channel. Exactly one of the two peers
// calls CreateOffer/Finalize (the offerer); the other calls CreateAnswer
// (the answerer). Send and Events are valid once the channel reports
// StateOpen.
type Session interface {
	// CreateOffer prepares the session for an inbound peer and returns an
	// opaque offer descriptor to be embedded in the offer payload.
	CreateOffer(ctx context.Context) (string, error)

	// CreateAnswer consumes a scanned offer descriptor, connects to the
	// offerer and returns the answer descriptor to be carried back.
	CreateAnswer(ctx context.Context, offer string) (string, error)

	// Finalize consumes the scanned answer descriptor on the offerer side
	// and opens the channel.
	Finalize(ctx context.Context, answer string) error

	// Send transmits one application payload over the open channel.
	Send(ctx context.Context, payload []byte) error

	// Events returns the inbound event stream. The channel is closed when
	// the session terminates.
	Events() <-chan Event

	// Close tears the session down and releases the underlying channel.
	// Safe to call from any state and more than once.
	Close() error
}
