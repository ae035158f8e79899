// Package cryptox implements the cryptographic primitives beamlink relies on:
// identity key pairs (X25519 for encryption, Ed25519 for signing), an
// anonymous sealed-box construction so a message can be decrypted knowing
// only the recipient's private key, and a passphrase-based symmetric cipher
// for identity export.
package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"
)

const (
	// BoxKeySize is the X25519 public/private key size.
	BoxKeySize = 32
	// NonceSize is the NaCl box nonce size.
	NonceSize = 24
)

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidKeySize   = errors.New("invalid key size")
)

// KeyPair bundles the two halves of an identity: a Curve25519 pair other
// peers encrypt to, and an Ed25519 pair used for signing. The private halves
// never leave the device except inside a passphrase-encrypted export.
type KeyPair struct {
	EncryptionPublic  []byte // 32 bytes, X25519
	EncryptionPrivate []byte // 32 bytes, X25519
	SigningPublic     []byte // 32 bytes, Ed25519
	SigningPrivate    []byte // 64 bytes, Ed25519
}

// GenerateKeyPair creates a fresh identity key pair from the system random
// source.
func GenerateKeyPair() (*KeyPair, error) {
	encPub, encPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	sigPub, sigPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		EncryptionPublic:  encPub[:],
		EncryptionPrivate: encPriv[:],
		SigningPublic:     sigPub,
		SigningPrivate:    sigPriv,
	}, nil
}

// Sign signs msg with the identity's Ed25519 private key.
func (kp *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(kp.SigningPrivate), msg)
}

// Verify checks an Ed25519 signature against a signing public key.
func Verify(signingPublic, msg, sig []byte) bool {
	if len(signingPublic) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signingPublic), msg, sig)
}

func toKey(b []byte) (*[BoxKeySize]byte, error) {
	if len(b) != BoxKeySize {
		return nil, ErrInvalidKeySize
	}
	var k [BoxKeySize]byte
	copy(k[:], b)
	return &k, nil
}
