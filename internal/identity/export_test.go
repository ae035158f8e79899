package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/models"
)

func TestExportImport_RoundTrip(t *testing.T) {
	id, err := models.NewIdentity()
	require.NoError(t, err)

	blob, err := Export(id, []byte("correct horse battery"))
	require.NoError(t, err)

	// The blob must not leak the private key in the clear.
	assert.NotContains(t, string(blob), id.PrivateKey)

	got, err := Import(blob, []byte("correct horse battery"))
	require.NoError(t, err)
	assert.Equal(t, id.DID, got.DID)
	assert.Equal(t, id.PublicKey, got.PublicKey)
	assert.Equal(t, id.PrivateKey, got.PrivateKey)

	_, err = got.Keys()
	assert.NoError(t, err)
}

func TestImport_WrongPassphrase(t *testing.T) {
	id, err := models.NewIdentity()
	require.NoError(t, err)

	blob, err := Export(id, []byte("correct horse battery"))
	require.NoError(t, err)

	_, err = Import(blob, []byte("incorrect horse battery"))
	assert.ErrorIs(t, err, common.ErrInvalidPassphrase)
}

func TestExport_ShortPassphrase(t *testing.T) {
	id, err := models.NewIdentity()
	require.NoError(t, err)

	_, err = Export(id, []byte("short"))
	assert.ErrorIs(t, err, ErrPassphraseTooShort)
}

func TestExport_SaltIsPerExport(t *testing.T) {
	id, err := models.NewIdentity()
	require.NoError(t, err)

	blob1, err := Export(id, []byte("correct horse battery"))
	require.NoError(t, err)
	blob2, err := Export(id, []byte("correct horse battery"))
	require.NoError(t, err)

	var a, b exportBlob
	require.NoError(t, json.Unmarshal(blob1, &a))
	require.NoError(t, json.Unmarshal(blob2, &b))
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestImport_GarbageBlob(t *testing.T) {
	_, err := Import([]byte("not even json"), []byte("whatever"))
	assert.Error(t, err)
}

func TestImport_UnsupportedVersion(t *testing.T) {
	blob, err := json.Marshal(exportBlob{Version: 99})
	require.NoError(t, err)

	_, err = Import(blob, []byte("whatever"))
	assert.ErrorContains(t, err, "unsupported export version")
}
