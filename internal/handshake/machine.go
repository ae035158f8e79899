package handshake

import (
	"context"
	"time"

	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/models"
	"github.com/okatenko/beamlink/internal/transport"
)

// State enumerates the connection state machine. The two sides of a
// handshake run asymmetric paths:
//
//	offerer:  Init -> OfferCreated -> AnswerScanned -> Connected -> Exchanging -> Complete
//	answerer: Init -> Scanning -> OfferScanned -> AnswerCreated -> Connected -> Exchanging -> Complete
//
// Any state may fall to Failed on a transport or identity error. Failed and
// Complete are terminal; Reset returns to Init and releases the session.
type State string

const (
	StateInit          State = "init"
	StateOfferCreated  State = "offer_created"
	StateScanning      State = "scanning"
	StateOfferScanned  State = "offer_scanned"
	StateAnswerCreated State = "answer_created"
	StateAnswerScanned State = "answer_scanned"
	StateConnected     State = "connected"
	StateExchanging    State = "exchanging"
	StateComplete      State = "complete"
	StateFailed        State = "failed"
)

// Role is which side of the handshake this device plays in the current
// session.
type Role string

const (
	RoleNone     Role = ""
	RoleOfferer  Role = "offerer"
	RoleAnswerer Role = "answerer"
)

// SessionFactory creates a fresh transport session per handshake attempt.
type SessionFactory func() transport.Session

// Machine is the connection state machine. It is not safe for concurrent
// use: the application feeds it one event at a time.
type Machine struct {
	newSession SessionFactory
	logger     logging.Logger

	state   State
	role    Role
	session transport.Session

	// offer is this side's own offer payload (offerer role).
	offer *ConnectionPayload
	// peerOffer is the scanned remote offer (answerer role).
	peerOffer *ConnectionPayload
}

func NewMachine(newSession SessionFactory, logger logging.Logger) *Machine {
	return &Machine{
		newSession: newSession,
		logger:     logger.With("module", "handshake"),
		state:      StateInit,
	}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Role() Role   { return m.role }

// Session exposes the open transport session to the exchange layer. Nil
// until Connected.
func (m *Machine) Session() transport.Session { return m.session }

// PeerOffer returns the scanned remote offer (answerer role), nil otherwise.
func (m *Machine) PeerOffer() *ConnectionPayload { return m.peerOffer }

// CreateOffer starts the offerer path: requests a transport offer and bundles
// it with the profile's public identity into the payload to be rendered as an
// optical code.
func (m *Machine) CreateOffer(ctx context.Context, profile *models.Profile) (*ConnectionPayload, error) {
	if m.state != StateInit {
		return nil, New(KindInvalidState, "offer requires init state, have "+string(m.state))
	}

	session := m.newSession()
	sessionOffer, err := session.CreateOffer(ctx)
	if err != nil {
		_ = session.Close()
		return nil, m.fail(Wrap(KindTransport, "transport offer failed", err))
	}

	m.session = session
	m.offer = NewConnectionPayload(profile, sessionOffer)
	m.role = RoleOfferer
	m.state = StateOfferCreated

	m.logger.Info(ctx, "offer created", "did", m.offer.DID)
	return m.offer, nil
}

// StartScanning arms the answerer path.
func (m *Machine) StartScanning() error {
	if m.state != StateInit {
		return New(KindInvalidState, "scanning requires init state, have "+string(m.state))
	}
	m.state = StateScanning
	m.role = RoleAnswerer
	return nil
}

// HandleScanned consumes one decoded optical code and advances the machine.
//
// A connection payload is only valid while scanning; an answer payload only
// while an own offer is outstanding. Onboarding URLs short-circuit out
// without touching the handshake state. Parse and unsupported-type errors
// leave the state unchanged so the scanner can be re-armed.
func (m *Machine) HandleScanned(ctx context.Context, data []byte) (*Scanned, error) {
	scanned, err := ParseScanned(data)
	if err != nil {
		return nil, err
	}

	switch scanned.Type {
	case PayloadTypeOnboarding:
		m.logger.Info(ctx, "onboarding link scanned", "referrer", scanned.Onboarding.Referrer)
		return scanned, nil

	case PayloadTypeConnection:
		if m.state != StateScanning {
			return nil, New(KindUnsupportedPayload, "unexpected connection payload in state "+string(m.state))
		}
		m.peerOffer = scanned.Connection
		m.state = StateOfferScanned
		m.logger.Info(ctx, "offer scanned", "peer", scanned.Connection.DID)
		return scanned, nil

	case PayloadTypeAnswer:
		if m.state != StateOfferCreated {
			return nil, New(KindUnsupportedPayload, "unexpected answer payload in state "+string(m.state))
		}
		return scanned, m.finalize(ctx, scanned.Answer)

	default:
		return nil, New(KindUnsupportedPayload, "unsupported payload type")
	}
}

// finalize is the offerer's last step: cross-check the answer's did against
// the original offer, then open the channel.
func (m *Machine) finalize(ctx context.Context, answer *AnswerPayload) error {
	m.state = StateAnswerScanned

	if m.offer == nil || answer.DID != m.offer.DID {
		return m.fail(New(KindIdentityMismatch, "answer did does not match offer"))
	}

	if err := m.session.Finalize(ctx, answer.SessionAnswer); err != nil {
		return m.fail(Wrap(KindTransport, "transport finalize failed", err))
	}

	m.state = StateConnected
	m.logger.Info(ctx, "channel open", "role", m.role)
	return nil
}

// Accept confirms the scanned peer: requests a transport answer and bundles
// it into the payload the offerer scans back.
func (m *Machine) Accept(ctx context.Context, profile *models.Profile) (*AnswerPayload, error) {
	if m.state != StateOfferScanned {
		return nil, New(KindInvalidState, "accept requires a scanned offer, have "+string(m.state))
	}

	session := m.newSession()
	sessionAnswer, err := session.CreateAnswer(ctx, m.peerOffer.SessionOffer)
	if err != nil {
		_ = session.Close()
		return nil, m.fail(Wrap(KindTransport, "transport answer failed", err))
	}

	m.session = session
	m.state = StateAnswerCreated

	answer := &AnswerPayload{
		Type:          PayloadTypeAnswer,
		DID:           m.peerOffer.DID,
		SessionAnswer: sessionAnswer,
		Timestamp:     time.Now().Unix(),
	}
	m.logger.Info(ctx, "answer created", "peer", m.peerOffer.DID)
	return answer, nil
}

// Decline discards all scanned data and returns to Init. No connection
// record is created on either side.
func (m *Machine) Decline() {
	m.logger.Info(context.Background(), "offer declined")
	m.Reset()
}

// AwaitOpen blocks on the answerer side until the offerer finalizes and the
// channel opens, or the session dies first.
func (m *Machine) AwaitOpen(ctx context.Context) error {
	if m.state != StateAnswerCreated {
		return New(KindInvalidState, "await requires a created answer, have "+string(m.state))
	}

	for {
		select {
		case ev, ok := <-m.session.Events():
			if !ok {
				return m.fail(New(KindTransport, "session ended before opening"))
			}
			if ev.Kind != transport.EventStateChange {
				continue
			}
			switch ev.State {
			case transport.StateOpen:
				m.state = StateConnected
				m.logger.Info(ctx, "channel open", "role", m.role)
				return nil
			case transport.StateDisconnected, transport.StateClosed:
				return m.fail(New(KindTransport, "channel lost before opening"))
			}
		case <-ctx.Done():
			return m.fail(Wrap(KindTransport, "await open cancelled", ctx.Err()))
		}
	}
}

// BeginExchange marks the data exchange as running and hands out the open
// session.
func (m *Machine) BeginExchange() (transport.Session, error) {
	if m.state != StateConnected {
		return nil, New(KindInvalidState, "exchange requires an open channel, have "+string(m.state))
	}
	m.state = StateExchanging
	return m.session, nil
}

// Complete marks the exchange finished. The machine stays in the terminal
// Complete state until Reset.
func (m *Machine) Complete() {
	if m.state == StateExchanging {
		m.state = StateComplete
	}
}

// Fail forces the terminal Failed state, e.g. when the transport reports an
// unexpected disconnect mid-exchange.
func (m *Machine) Fail(err error) {
	_ = m.fail(err)
}

func (m *Machine) fail(err error) error {
	m.logger.Error(context.Background(), "handshake failed", "state", string(m.state), "error", err)
	m.state = StateFailed
	if m.session != nil {
		_ = m.session.Close()
		m.session = nil
	}
	return err
}

// Reset releases the transport session, discards handshake data and returns
// to Init. Valid from any state.
func (m *Machine) Reset() {
	if m.session != nil {
		_ = m.session.Close()
		m.session = nil
	}
	m.offer = nil
	m.peerOffer = nil
	m.role = RoleNone
	m.state = StateInit
}
