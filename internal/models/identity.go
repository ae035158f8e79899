// Package models defines the record types beamlink persists and exchanges:
// Identity, Profile, Connection, Message and Relay.
package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/cryptox"
)

// Identity is the local device identity. PublicKey is safe to share;
// PrivateKey never leaves the device except inside a passphrase-encrypted
// export blob.
//
// Key encoding: PublicKey is base64 of X25519 encryption pub (32 bytes)
// followed by Ed25519 signing pub (32 bytes). PrivateKey is base64 of X25519
// encryption priv (32 bytes) followed by Ed25519 signing priv (64 bytes).
type Identity struct {
	DID        string    `json:"did"`
	PublicKey  string    `json:"publicKey"`
	PrivateKey string    `json:"privateKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewIdentity mints a fresh identity: a random DID in the beam namespace and
// a new key pair.
func NewIdentity() (*Identity, error) {
	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}

	pub := append(append([]byte{}, kp.EncryptionPublic...), kp.SigningPublic...)
	priv := append(append([]byte{}, kp.EncryptionPrivate...), kp.SigningPrivate...)

	return &Identity{
		DID:        fmt.Sprintf("did:%s:%s", common.DIDNamespace, suffix),
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		PrivateKey: base64.StdEncoding.EncodeToString(priv),
		CreatedAt:  time.Now(),
	}, nil
}

// ValidDID reports whether s looks like an identifier this application mints.
func ValidDID(s string) bool {
	parts := strings.Split(s, ":")
	return len(parts) == 3 && parts[0] == "did" && parts[1] != "" && parts[2] != ""
}

// Keys decodes the identity's private key material.
func (id *Identity) Keys() (*cryptox.KeyPair, error) {
	priv, err := base64.StdEncoding.DecodeString(id.PrivateKey)
	if err != nil {
		return nil, err
	}
	pub, err := base64.StdEncoding.DecodeString(id.PublicKey)
	if err != nil {
		return nil, err
	}
	if len(priv) != 32+64 || len(pub) != 32+32 {
		return nil, cryptox.ErrInvalidKeySize
	}
	return &cryptox.KeyPair{
		EncryptionPublic:  pub[:32],
		EncryptionPrivate: priv[:32],
		SigningPublic:     pub[32:],
		SigningPrivate:    priv[32:],
	}, nil
}

// EncryptionPublicKey extracts the X25519 half from an encoded public key as
// shared by a peer.
func EncryptionPublicKey(encoded string) ([]byte, error) {
	pub, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(pub) < cryptox.BoxKeySize {
		return nil, cryptox.ErrInvalidKeySize
	}
	return pub[:cryptox.BoxKeySize], nil
}
