package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"

	"golang.org/x/crypto/argon2"
)

// exportNamespace is mixed into every export salt so a key derived here is
// never valid for any other argon2 use of the same passphrase.
const exportNamespace = "beamlink/identity-export/v1"

// DeriveExportKey derives a 32-byte AES key from a passphrase and the random
// per-export salt using argon2id.
func DeriveExportKey(passphrase, salt []byte) []byte {
	namespaced := append([]byte(exportNamespace), salt...)
	return argon2.IDKey(passphrase, namespaced, 1, 64*1024, 4, 32)
}

// EncryptBlob serializes v to JSON and encrypts it with AES-GCM under key.
// A fresh random 12-byte nonce is generated for each call and returned
// alongside the ciphertext.
func EncryptBlob(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// DecryptBlob decrypts ciphertext produced by EncryptBlob and unmarshals the
// JSON into v. A wrong key surfaces as ErrDecryptionFailed, never a panic.
func DecryptBlob(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecryptionFailed
	}

	return json.Unmarshal(plaintext, v)
}
