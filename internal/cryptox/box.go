package cryptox

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
)

// SealAnonymous encrypts plaintext so that only the holder of the matching
// encryption private key can read it. An ephemeral X25519 key pair is
// generated per message, so the ciphertext carries no sender identity.
//
// Wire layout: ephemeralPub(32) || nonce(24) || box ciphertext.
func SealAnonymous(plaintext, recipientPublic []byte) ([]byte, error) {
	rpub, err := toKey(recipientPublic)
	if err != nil {
		return nil, err
	}

	epub, epriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	out := make([]byte, 0, BoxKeySize+NonceSize+len(plaintext)+box.Overhead)
	out = append(out, epub[:]...)
	out = append(out, nonce[:]...)
	return box.Seal(out, plaintext, &nonce, rpub, epriv), nil
}

// OpenAnonymous reverses SealAnonymous. It returns ErrDecryptionFailed when
// the ciphertext is malformed or was not encrypted to this private key, so
// callers can skip an individual item without aborting a whole exchange.
func OpenAnonymous(ciphertext, recipientPrivate []byte) ([]byte, error) {
	rpriv, err := toKey(recipientPrivate)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < BoxKeySize+NonceSize+box.Overhead {
		return nil, ErrDecryptionFailed
	}

	var epub [BoxKeySize]byte
	copy(epub[:], ciphertext[:BoxKeySize])
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[BoxKeySize:BoxKeySize+NonceSize])

	plaintext, ok := box.Open(nil, ciphertext[BoxKeySize+NonceSize:], &nonce, &epub, rpriv)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
