package models

import "time"

// MessageStatus tracks a message through its lifecycle. Records are immutable
// once created except for this field.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusReceived  MessageStatus = "received"
)

// Message is a directed communication between two identities. Ciphertext is
// the content sealed to the recipient's encryption public key; Content holds
// the local plaintext and is never transmitted with sent records addressed
// elsewhere.
type Message struct {
	ID            string
	SenderID      string
	SenderName    string
	RecipientID   string
	RecipientName string
	Content       string
	Ciphertext    []byte
	CreatedAt     time.Time
	Status        MessageStatus
	IsRelay       bool
}
