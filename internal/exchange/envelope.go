// Package exchange implements the data exchange protocol that runs over an
// open peer channel: both sides independently send profile, connections,
// messages and relays in a fixed order, acknowledge what they receive and
// finish with a complete marker.
package exchange

import (
	"time"

	"github.com/okatenko/beamlink/internal/models"
)

// MessageType discriminates channel envelopes.
type MessageType string

const (
	TypeProfile     MessageType = "profile"
	TypeConnections MessageType = "connections"
	TypeMessages    MessageType = "messages"
	TypeRelays      MessageType = "relays"
	TypeComplete    MessageType = "complete"

	TypeProfileAck     MessageType = "profile_ack"
	TypeConnectionsAck MessageType = "connections_ack"
	TypeMessagesAck    MessageType = "messages_ack"
	TypeRelaysAck      MessageType = "relays_ack"
)

// Envelope is the wire form of every channel message. Exactly the fields of
// the discriminated type are set.
type Envelope struct {
	Type        MessageType      `json:"type"`
	Timestamp   int64            `json:"timestamp"`
	Profile     *ProfilePayload  `json:"profile,omitempty"`
	Connections []ContactSummary `json:"connections,omitempty"`
	Messages    []WireMessage    `json:"messages,omitempty"`
	Relays      []WireRelay      `json:"relays,omitempty"`
	Count       int              `json:"count,omitempty"`
}

// ProfilePayload carries the sender's profile fields, including the picture
// bytes when present (unlike the offer code, the open channel can afford
// them).
type ProfilePayload struct {
	DID       string  `json:"did"`
	PublicKey string  `json:"publicKey"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Nickname  *string `json:"nickname,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Picture   []byte  `json:"picture,omitempty"`
}

// ContactSummary is the redacted form of an own connection shared for
// second-degree discovery: name and did only, no keys, no bios.
type ContactSummary struct {
	DID  string `json:"did"`
	Name string `json:"name"`
}

// WireMessage is a pending message in transit. Only ciphertext travels; the
// plaintext never leaves the authoring device.
type WireMessage struct {
	ID            string `json:"id"`
	SenderID      string `json:"senderId"`
	SenderName    string `json:"senderName"`
	RecipientID   string `json:"recipientId"`
	RecipientName string `json:"recipientName"`
	Ciphertext    []byte `json:"ciphertext"`
	Timestamp     int64  `json:"timestamp"`
}

// WireRelay is a store-and-forward record in transit.
type WireRelay struct {
	ID               string `json:"id"`
	MessageID        string `json:"messageId"`
	OriginSenderID   string `json:"originalSenderId"`
	OriginSenderName string `json:"originalSenderName"`
	TargetID         string `json:"targetRecipientId"`
	TargetName       string `json:"targetRecipientName"`
	Ciphertext       []byte `json:"ciphertext"`
	Timestamp        int64  `json:"timestamp"`
}

func profilePayload(p *models.Profile) *ProfilePayload {
	return &ProfilePayload{
		DID:       p.Identity.DID,
		PublicKey: p.Identity.PublicKey,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Nickname:  p.Nickname,
		Bio:       p.Bio,
		Picture:   p.Picture,
	}
}

func contactSummaries(conns []models.Connection) []ContactSummary {
	out := make([]ContactSummary, 0, len(conns))
	for _, c := range conns {
		name := c.FirstName + " " + c.LastName
		if c.Nickname != nil && *c.Nickname != "" {
			name = *c.Nickname
		}
		out = append(out, ContactSummary{DID: c.DID, Name: name})
	}
	return out
}

func wireMessages(msgs []models.Message) []WireMessage {
	out := make([]WireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, WireMessage{
			ID:            m.ID,
			SenderID:      m.SenderID,
			SenderName:    m.SenderName,
			RecipientID:   m.RecipientID,
			RecipientName: m.RecipientName,
			Ciphertext:    m.Ciphertext,
			Timestamp:     m.CreatedAt.Unix(),
		})
	}
	return out
}

func wireRelays(rels []models.Relay) []WireRelay {
	out := make([]WireRelay, 0, len(rels))
	for _, rel := range rels {
		out = append(out, WireRelay{
			ID:               rel.ID,
			MessageID:        rel.MessageID,
			OriginSenderID:   rel.OriginSenderID,
			OriginSenderName: rel.OriginSenderName,
			TargetID:         rel.TargetID,
			TargetName:       rel.TargetName,
			Ciphertext:       rel.Ciphertext,
			Timestamp:        rel.CreatedAt.Unix(),
		})
	}
	return out
}

func envelope(t MessageType) Envelope {
	return Envelope{Type: t, Timestamp: time.Now().Unix()}
}
