package exchange

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/okatenko/beamlink/internal/cryptox"
	"github.com/okatenko/beamlink/internal/handshake"
	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/models"
	"github.com/okatenko/beamlink/internal/store/connections"
	"github.com/okatenko/beamlink/internal/store/messages"
	"github.com/okatenko/beamlink/internal/store/relays"
	"github.com/okatenko/beamlink/internal/transport"
)

// Summary is the outcome of one completed exchange, returned to the caller so
// it can commit the connection and report what moved.
type Summary struct {
	// Peer is the connection candidate built from the peer's profile step.
	// The caller commits it to the connections repository once the exchange
	// completes.
	Peer *models.Connection

	// PeerContacts are the redacted second-degree contacts the peer shared.
	// They are acknowledged but never merged into the local store.
	PeerContacts []ContactSummary

	MessagesReceived int
	RelaysReceived   int
	MessagesSent     int
	RelaysForwarded  int
}

// Runner drives one side of the exchange over an open session. Both peers run
// the same code; the only asymmetry is that the offerer does not know the
// peer's did until the peer's profile step arrives.
type Runner struct {
	profile     *models.Profile
	keys        *cryptox.KeyPair
	connections connections.Repository
	messages    messages.Repository
	relays      relays.Repository
	logger      logging.Logger
	now         func() time.Time
}

func NewRunner(profile *models.Profile, keys *cryptox.KeyPair,
	conns connections.Repository, msgs messages.Repository, rels relays.Repository,
	logger logging.Logger) *Runner {
	return &Runner{
		profile:     profile,
		keys:        keys,
		connections: conns,
		messages:    msgs,
		relays:      rels,
		logger:      logger,
		now:         time.Now,
	}
}

// runState tracks one Run invocation.
type runState struct {
	sess    transport.Session
	peerDID string

	sentMessageIDs  []string
	sentRelayIDs    []string
	relayMessageIDs []string
	tailSent        bool

	peerComplete bool
	acks         map[MessageType]bool

	summary Summary
}

// Run executes the exchange. peerDID is the peer's did when already known
// (the answerer learned it from the scanned offer); the offerer passes ""
// and the runner defers the messages and relays steps until the peer's
// profile arrives.
//
// Run returns once the peer's complete marker and all four acknowledgements
// have been observed, the context expires, or the channel drops.
func (r *Runner) Run(ctx context.Context, sess transport.Session, peerDID string) (*Summary, error) {
	st := &runState{
		sess:    sess,
		peerDID: peerDID,
		acks:    make(map[MessageType]bool),
	}

	if err := r.sendProfile(ctx, st); err != nil {
		return nil, err
	}
	if err := r.sendConnections(ctx, st); err != nil {
		return nil, err
	}
	if st.peerDID != "" {
		if err := r.sendTail(ctx, st); err != nil {
			return nil, err
		}
	}

	for !st.done() {
		select {
		case <-ctx.Done():
			return nil, handshake.Wrap(handshake.KindTransport, "exchange timed out", ctx.Err())
		case ev, ok := <-sess.Events():
			if !ok {
				return nil, handshake.New(handshake.KindTransport, "channel closed mid-exchange")
			}
			switch ev.Kind {
			case transport.EventStateChange:
				if ev.State == transport.StateDisconnected || ev.State == transport.StateClosed {
					return nil, handshake.New(handshake.KindTransport, "peer disconnected mid-exchange")
				}
			case transport.EventMessage:
				if err := r.handleInbound(ctx, st, ev.Data); err != nil {
					return nil, err
				}
			}
		}
	}

	// Forwarded relays count as delivered for their backing message too.
	delivered := append(append([]string{}, st.sentMessageIDs...), st.relayMessageIDs...)
	if err := r.messages.MarkDelivered(ctx, delivered); err != nil {
		return nil, handshake.Wrap(handshake.KindStore, "marking messages delivered", err)
	}
	for _, id := range st.sentRelayIDs {
		if err := r.relays.Delete(ctx, id); err != nil {
			return nil, handshake.Wrap(handshake.KindStore, "clearing forwarded relay", err)
		}
	}
	st.summary.MessagesSent = len(st.sentMessageIDs)
	st.summary.RelaysForwarded = len(st.sentRelayIDs)
	return &st.summary, nil
}

func (st *runState) done() bool {
	return st.peerComplete && st.tailSent &&
		st.acks[TypeProfileAck] && st.acks[TypeConnectionsAck] &&
		st.acks[TypeMessagesAck] && st.acks[TypeRelaysAck]
}

func (r *Runner) sendProfile(ctx context.Context, st *runState) error {
	env := envelope(TypeProfile)
	env.Profile = profilePayload(r.profile)
	return r.send(ctx, st, env)
}

func (r *Runner) sendConnections(ctx context.Context, st *runState) error {
	conns, err := r.connections.ListActive(ctx, r.now())
	if err != nil {
		return handshake.Wrap(handshake.KindStore, "listing connections", err)
	}
	// The exchange counterpart is excluded: telling a peer about itself is
	// useless.
	kept := conns[:0]
	for _, c := range conns {
		if c.DID != st.peerDID {
			kept = append(kept, c)
		}
	}
	env := envelope(TypeConnections)
	env.Connections = contactSummaries(kept)
	env.Count = len(env.Connections)
	return r.send(ctx, st, env)
}

// sendTail sends the peer-addressed steps (messages, relays) and the complete
// marker. It requires st.peerDID to be known.
func (r *Runner) sendTail(ctx context.Context, st *runState) error {
	msgs, err := r.messages.PendingFor(ctx, st.peerDID)
	if err != nil {
		return handshake.Wrap(handshake.KindStore, "listing pending messages", err)
	}
	env := envelope(TypeMessages)
	env.Messages = wireMessages(msgs)
	env.Count = len(env.Messages)
	if err := r.send(ctx, st, env); err != nil {
		return err
	}
	for _, m := range msgs {
		st.sentMessageIDs = append(st.sentMessageIDs, m.ID)
	}

	rels, err := r.relays.ListForRecipient(ctx, st.peerDID)
	if err != nil {
		return handshake.Wrap(handshake.KindStore, "listing pending relays", err)
	}
	env = envelope(TypeRelays)
	env.Relays = wireRelays(rels)
	env.Count = len(env.Relays)
	if err := r.send(ctx, st, env); err != nil {
		return err
	}
	for _, rel := range rels {
		st.sentRelayIDs = append(st.sentRelayIDs, rel.ID)
		st.relayMessageIDs = append(st.relayMessageIDs, rel.MessageID)
	}

	if err := r.send(ctx, st, envelope(TypeComplete)); err != nil {
		return err
	}
	st.tailSent = true
	return nil
}

func (r *Runner) handleInbound(ctx context.Context, st *runState, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return handshake.Wrap(handshake.KindPayloadParse, "undecodable channel message", err)
	}

	switch env.Type {
	case TypeProfile:
		return r.handleProfile(ctx, st, &env)
	case TypeConnections:
		st.summary.PeerContacts = env.Connections
		r.logger.Info(ctx, "peer shared contacts", "count", len(env.Connections))
		return r.ack(ctx, st, TypeConnectionsAck, len(env.Connections))
	case TypeMessages:
		return r.handleMessages(ctx, st, &env)
	case TypeRelays:
		return r.handleRelays(ctx, st, &env)
	case TypeComplete:
		// The profile step is the peer's identity in this exchange; without
		// it there is nothing to commit as a connection.
		if st.summary.Peer == nil {
			return handshake.New(handshake.KindPayloadParse, "peer completed without a profile step")
		}
		st.peerComplete = true
		return nil
	case TypeProfileAck, TypeConnectionsAck, TypeMessagesAck, TypeRelaysAck:
		st.acks[env.Type] = true
		return nil
	default:
		// Unknown envelope types are skipped so protocol extensions do not
		// break older peers.
		r.logger.Warn(ctx, "skipping unknown channel message", "type", string(env.Type))
		return nil
	}
}

func (r *Runner) handleProfile(ctx context.Context, st *runState, env *Envelope) error {
	p := env.Profile
	if p == nil || p.DID == "" || p.PublicKey == "" {
		return handshake.New(handshake.KindPayloadParse, "profile step missing identity fields")
	}
	if st.peerDID != "" && p.DID != st.peerDID {
		return handshake.New(handshake.KindIdentityMismatch, "profile did does not match handshake peer")
	}

	st.summary.Peer = &models.Connection{
		ID:        uuid.NewString(),
		DID:       p.DID,
		PublicKey: p.PublicKey,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Nickname:  p.Nickname,
		Bio:       p.Bio,
		Picture:   p.Picture,
	}

	if err := r.ack(ctx, st, TypeProfileAck, 0); err != nil {
		return err
	}
	if !st.tailSent {
		st.peerDID = p.DID
		return r.sendTail(ctx, st)
	}
	return nil
}

func (r *Runner) handleMessages(ctx context.Context, st *runState, env *Envelope) error {
	stored := 0
	for _, wm := range env.Messages {
		plaintext, err := cryptox.OpenAnonymous(wm.Ciphertext, r.keys.EncryptionPrivate)
		if err != nil {
			// One undecryptable item must not sink the rest of the batch.
			r.logger.Warn(ctx, "dropping undecryptable message", "id", wm.ID, "error", err)
			continue
		}
		m := &models.Message{
			ID:            wm.ID,
			SenderID:      wm.SenderID,
			SenderName:    wm.SenderName,
			RecipientID:   wm.RecipientID,
			RecipientName: wm.RecipientName,
			Content:       string(plaintext),
			CreatedAt:     time.Unix(wm.Timestamp, 0),
			Status:        models.MessageStatusReceived,
		}
		inserted, err := r.messages.InsertIfAbsent(ctx, m)
		if err != nil {
			return handshake.Wrap(handshake.KindStore, "storing received message", err)
		}
		if inserted {
			stored++
		}
	}
	st.summary.MessagesReceived = stored
	return r.ack(ctx, st, TypeMessagesAck, len(env.Messages))
}

// handleRelays ingests forwarded messages. With single-hop forwarding the
// carrier is always the final target, so every relay item is addressed to the
// local identity and decrypts with the local key.
func (r *Runner) handleRelays(ctx context.Context, st *runState, env *Envelope) error {
	stored := 0
	for _, wr := range env.Relays {
		plaintext, err := cryptox.OpenAnonymous(wr.Ciphertext, r.keys.EncryptionPrivate)
		if err != nil {
			r.logger.Warn(ctx, "dropping undecryptable relay", "id", wr.ID, "error", err)
			continue
		}
		m := &models.Message{
			ID:            wr.MessageID,
			SenderID:      wr.OriginSenderID,
			SenderName:    wr.OriginSenderName,
			RecipientID:   wr.TargetID,
			RecipientName: wr.TargetName,
			Content:       string(plaintext),
			CreatedAt:     time.Unix(wr.Timestamp, 0),
			Status:        models.MessageStatusReceived,
			IsRelay:       true,
		}
		inserted, err := r.messages.InsertIfAbsent(ctx, m)
		if err != nil {
			return handshake.Wrap(handshake.KindStore, "storing relayed message", err)
		}
		if inserted {
			stored++
		}
	}
	st.summary.RelaysReceived = stored
	return r.ack(ctx, st, TypeRelaysAck, len(env.Relays))
}

func (r *Runner) ack(ctx context.Context, st *runState, t MessageType, count int) error {
	env := envelope(t)
	env.Count = count
	return r.send(ctx, st, env)
}

func (r *Runner) send(ctx context.Context, st *runState, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return handshake.Wrap(handshake.KindPayloadParse, "encoding channel message", err)
	}
	if err := st.sess.Send(ctx, b); err != nil {
		return handshake.Wrap(handshake.KindTransport, "sending channel message", err)
	}
	return nil
}
