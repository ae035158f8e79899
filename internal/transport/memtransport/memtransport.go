// Package memtransport provides an in-process implementation of
// transport.Session for tests and local loopback runs. Two paired sessions
// deliver payloads to each other through buffered channels.
package memtransport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/okatenko/beamlink/internal/transport"
)

const (
	offerPrefix  = "mem-offer:"
	answerPrefix = "mem-answer:"
	eventBuffer  = 64
)

var (
	ErrNotPaired     = errors.New("memtransport: session not paired")
	ErrBadDescriptor = errors.New("memtransport: bad descriptor")
	ErrChannelClosed = errors.New("memtransport: channel closed")
)

// Session implements transport.Session over in-memory channels.
type Session struct {
	mu     sync.Mutex
	peer   *Session
	events chan transport.Event
	sid    string
	open   bool
	closed bool
}

// NewPair returns two linked sessions: the first plays offerer, the second
// answerer.
func NewPair() (*Session, *Session) {
	a := &Session{events: make(chan transport.Event, eventBuffer)}
	b := &Session{events: make(chan transport.Event, eventBuffer)}
	a.peer = b
	b.peer = a
	return a, b
}

func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = uuid.NewString()
	return offerPrefix + s.sid, nil
}

func (s *Session) CreateAnswer(ctx context.Context, offer string) (string, error) {
	sid, ok := strings.CutPrefix(offer, offerPrefix)
	if !ok || sid == "" {
		return "", ErrBadDescriptor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sid
	return answerPrefix + sid, nil
}

func (s *Session) Finalize(ctx context.Context, answer string) error {
	sid, ok := strings.CutPrefix(answer, answerPrefix)
	if !ok {
		return ErrBadDescriptor
	}

	s.mu.Lock()
	if sid != s.sid {
		s.mu.Unlock()
		return ErrBadDescriptor
	}
	peer := s.peer
	s.open = true
	s.mu.Unlock()

	if peer == nil {
		return ErrNotPaired
	}

	peer.mu.Lock()
	peer.open = true
	peer.mu.Unlock()

	s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateOpen})
	peer.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateOpen})
	return nil
}

func (s *Session) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	open, closed, peer := s.open, s.closed, s.peer
	s.mu.Unlock()

	if closed {
		return ErrChannelClosed
	}
	if !open || peer == nil {
		return ErrNotPaired
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	peer.emit(transport.Event{Kind: transport.EventMessage, Data: buf})
	return nil
}

func (s *Session) Events() <-chan transport.Event {
	return s.events
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.open = false
	peer := s.peer
	s.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		peerClosed := peer.closed
		peer.open = false
		peer.mu.Unlock()
		if !peerClosed {
			peer.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateDisconnected})
		}
	}

	s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateClosed})
	close(s.events)
	return nil
}

// emit drops events once the buffer is full; a stuck consumer must not block
// the peer.
func (s *Session) emit(ev transport.Event) {
	defer func() {
		// sending on a closed events channel is possible when both sides
		// close concurrently; treat it as a dropped event
		_ = recover()
	}()
	select {
	case s.events <- ev:
	default:
	}
}
