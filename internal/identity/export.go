// Package identity moves a device identity between installations as a
// passphrase-encrypted blob. The private key is the only unrecoverable piece
// of state, so this is the backup path for everything that matters.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/cryptox"
	"github.com/okatenko/beamlink/internal/models"
)

const (
	exportVersion = 1
	saltSize      = 16
	minPassphrase = 8
)

// ErrPassphraseTooShort rejects passphrases below the minimum length before
// any key derivation happens.
var ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", minPassphrase)

// exportBlob is the outer, unencrypted frame of an export file.
type exportBlob struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// exportBody is what the ciphertext decrypts to.
type exportBody struct {
	DID        string    `json:"did"`
	PublicKey  string    `json:"publicKey"`
	PrivateKey string    `json:"privateKey"`
	CreatedAt  time.Time `json:"createdAt"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Export encrypts the identity under a passphrase-derived key and returns a
// self-contained JSON blob. The derivation salt is random per export, so two
// exports of the same identity never share key material.
func Export(id *models.Identity, passphrase []byte) ([]byte, error) {
	if len(passphrase) < minPassphrase {
		return nil, ErrPassphraseTooShort
	}

	salt := common.GenerateRandByteArray(saltSize)
	key := cryptox.DeriveExportKey(passphrase, salt)
	defer common.WipeByteArray(key)

	body := exportBody{
		DID:        id.DID,
		PublicKey:  id.PublicKey,
		PrivateKey: id.PrivateKey,
		CreatedAt:  id.CreatedAt,
		ExportedAt: time.Now(),
	}
	ciphertext, nonce, err := cryptox.EncryptBlob(body, key)
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(exportBlob{
		Version:    exportVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
}

// Import decrypts an export blob. A wrong passphrase surfaces as
// common.ErrInvalidPassphrase; a malformed blob as a plain error.
func Import(blob, passphrase []byte) (*models.Identity, error) {
	var outer exportBlob
	if err := json.Unmarshal(blob, &outer); err != nil {
		return nil, fmt.Errorf("unreadable export file: %w", err)
	}
	if outer.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", outer.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(outer.Salt)
	if err != nil {
		return nil, fmt.Errorf("unreadable export file: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(outer.Nonce)
	if err != nil {
		return nil, fmt.Errorf("unreadable export file: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(outer.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("unreadable export file: %w", err)
	}

	key := cryptox.DeriveExportKey(passphrase, salt)
	defer common.WipeByteArray(key)

	var body exportBody
	if err := cryptox.DecryptBlob(ciphertext, nonce, key, &body); err != nil {
		if errors.Is(err, cryptox.ErrDecryptionFailed) {
			return nil, common.ErrInvalidPassphrase
		}
		return nil, err
	}

	id := &models.Identity{
		DID:        body.DID,
		PublicKey:  body.PublicKey,
		PrivateKey: body.PrivateKey,
		CreatedAt:  body.CreatedAt,
	}
	if !models.ValidDID(id.DID) {
		return nil, common.ErrInvalidDID
	}
	if _, err := id.Keys(); err != nil {
		return nil, fmt.Errorf("export holds invalid key material: %w", err)
	}
	return id, nil
}
