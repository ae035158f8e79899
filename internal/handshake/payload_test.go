package handshake

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatenko/beamlink/internal/models"
)

func testProfile(t *testing.T) *models.Profile {
	t.Helper()
	id, err := models.NewIdentity()
	require.NoError(t, err)
	nick := "ally"
	return &models.Profile{
		FirstName: "Alice",
		LastName:  "Anders",
		Nickname:  &nick,
		Picture:   []byte{0xff, 0xd8},
		Identity:  *id,
	}
}

func TestParseScanned_ConnectionPayload(t *testing.T) {
	p := testProfile(t)
	payload := NewConnectionPayload(p, "offer-descriptor")
	assert.True(t, payload.Profile.ProfilePicture)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	// Picture bytes must never enter an offer code, only the presence flag.
	assert.NotContains(t, string(raw), "picture\":\"")

	scanned, err := ParseScanned(raw)
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeConnection, scanned.Type)
	require.NotNil(t, scanned.Connection)
	assert.Equal(t, p.Identity.DID, scanned.Connection.DID)
	assert.Equal(t, "offer-descriptor", scanned.Connection.SessionOffer)
	assert.Equal(t, "ally", *scanned.Connection.Profile.Nickname)
}

func TestParseScanned_AnswerPayload(t *testing.T) {
	raw, err := json.Marshal(AnswerPayload{
		Type:          PayloadTypeAnswer,
		DID:           "did:beam:abc",
		SessionAnswer: "answer-descriptor",
	})
	require.NoError(t, err)

	scanned, err := ParseScanned(raw)
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeAnswer, scanned.Type)
	require.NotNil(t, scanned.Answer)
	assert.Equal(t, "answer-descriptor", scanned.Answer.SessionAnswer)
}

func TestParseScanned_OnboardingURL(t *testing.T) {
	scanned, err := ParseScanned([]byte(
		"https://beamlink.example/join?type=onboarding&did=did%3Abeam%3Aabc&name=Alice&referrer=did%3Abeam%3Axyz"))
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeOnboarding, scanned.Type)
	require.NotNil(t, scanned.Onboarding)
	assert.Equal(t, "did:beam:abc", scanned.Onboarding.DID)
	assert.Equal(t, "Alice", scanned.Onboarding.Name)
	assert.Equal(t, "did:beam:xyz", scanned.Onboarding.Referrer)
}

func TestParseScanned_Garbage(t *testing.T) {
	_, err := ParseScanned([]byte("WIFI:T:WPA;S:cafe;;"))
	assert.True(t, IsKind(err, KindPayloadParse))
	assert.True(t, Recoverable(err))
}

func TestParseScanned_UnknownType(t *testing.T) {
	_, err := ParseScanned([]byte(`{"type":"payment_request"}`))
	assert.True(t, IsKind(err, KindUnsupportedPayload))
	assert.True(t, Recoverable(err))
}

func TestParseScanned_ConnectionWithoutDID(t *testing.T) {
	_, err := ParseScanned([]byte(`{"type":"connection","sessionOffer":"x"}`))
	assert.True(t, IsKind(err, KindPayloadParse))
}

func TestParseScanned_URLWithoutOnboardingType(t *testing.T) {
	_, err := ParseScanned([]byte("https://example.com/some/page"))
	assert.True(t, IsKind(err, KindPayloadParse))
}
