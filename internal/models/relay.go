package models

import "time"

// RelayStatusPending is the only status a stored relay ever has; delivered
// relays are deleted rather than marked.
const RelayStatusPending = "pending"

// Relay is a message queued for a recipient that was not reachable when it
// was authored. The ciphertext is sealed to the final target's key, so a
// carrier never gains plaintext access.
type Relay struct {
	ID               string
	MessageID        string
	OriginSenderID   string
	OriginSenderName string
	TargetID         string
	TargetName       string
	Ciphertext       []byte
	CreatedAt        time.Time
	Status           string
}
