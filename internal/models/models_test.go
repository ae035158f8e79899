package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id.DID, "did:beam:"))
	assert.True(t, ValidDID(id.DID))

	kp, err := id.Keys()
	require.NoError(t, err)
	assert.Len(t, kp.EncryptionPublic, 32)
	assert.Len(t, kp.SigningPrivate, 64)

	// two identities never collide
	id2, err := NewIdentity()
	require.NoError(t, err)
	assert.NotEqual(t, id.DID, id2.DID)
}

func TestValidDID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"did:beam:abc123", true},
		{"did:web:example", true},
		{"did:beam:", false},
		{"beam:abc", false},
		{"", false},
		{"did::abc", false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, ValidDID(tc.in), "ValidDID(%q)", tc.in)
	}
}

func TestEncryptionPublicKey_MatchesIdentity(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	kp, err := id.Keys()
	require.NoError(t, err)

	pub, err := EncryptionPublicKey(id.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, kp.EncryptionPublic, pub)
}

func TestProfile_DisplayName(t *testing.T) {
	nick := "ally"
	p := &Profile{FirstName: "Alice", LastName: "Smith"}
	assert.Equal(t, "Alice Smith", p.DisplayName())

	p.Nickname = &nick
	assert.Equal(t, "ally", p.DisplayName())
}

func TestConnection_Merge_PreservesExistingOnEmpty(t *testing.T) {
	bio := "old bio"
	c := &Connection{
		DID:       "did:beam:x",
		PublicKey: "pk-old",
		FirstName: "Bob",
		LastName:  "Jones",
		Bio:       &bio,
		Picture:   []byte{1, 2, 3},
	}

	c.Merge(&Connection{FirstName: "Robert"})

	assert.Equal(t, "Robert", c.FirstName)
	assert.Equal(t, "Jones", c.LastName)
	assert.Equal(t, "pk-old", c.PublicKey)
	require.NotNil(t, c.Bio)
	assert.Equal(t, "old bio", *c.Bio)
	assert.Equal(t, []byte{1, 2, 3}, c.Picture)
}

func TestConnection_Expired(t *testing.T) {
	now := time.Now()
	c := &Connection{ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, c.Expired(now))

	c.ExpiresAt = now.Add(time.Hour)
	assert.False(t, c.Expired(now))
}
