package handshake

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/transport"
	"github.com/okatenko/beamlink/internal/transport/memtransport"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newMachinePair returns an offerer and answerer machine whose session
// factories hand out the two halves of one in-memory transport pair.
func newMachinePair() (*Machine, *Machine) {
	a, b := memtransport.NewPair()
	offerer := NewMachine(func() transport.Session { return a }, testLogger())
	answerer := NewMachine(func() transport.Session { return b }, testLogger())
	return offerer, answerer
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMachine_FullHandshake(t *testing.T) {
	offerer, answerer := newMachinePair()
	ctx := context.Background()

	offer, err := offerer.CreateOffer(ctx, testProfile(t))
	require.NoError(t, err)
	assert.Equal(t, StateOfferCreated, offerer.State())
	assert.Equal(t, RoleOfferer, offerer.Role())

	require.NoError(t, answerer.StartScanning())
	scanned, err := answerer.HandleScanned(ctx, marshal(t, offer))
	require.NoError(t, err)
	assert.Equal(t, StateOfferScanned, answerer.State())
	assert.Equal(t, offer.DID, scanned.Connection.DID)
	assert.Equal(t, offer.DID, answerer.PeerOffer().DID)

	answer, err := answerer.Accept(ctx, testProfile(t))
	require.NoError(t, err)
	assert.Equal(t, StateAnswerCreated, answerer.State())
	assert.Equal(t, offer.DID, answer.DID)

	_, err = offerer.HandleScanned(ctx, marshal(t, answer))
	require.NoError(t, err)
	assert.Equal(t, StateConnected, offerer.State())

	require.NoError(t, answerer.AwaitOpen(ctx))
	assert.Equal(t, StateConnected, answerer.State())

	// Both sides hand out the open session for the exchange.
	sess, err := offerer.BeginExchange()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, StateExchanging, offerer.State())

	offerer.Complete()
	assert.Equal(t, StateComplete, offerer.State())
}

func TestMachine_AnswerDIDMismatchFails(t *testing.T) {
	offerer, _ := newMachinePair()
	ctx := context.Background()

	offer, err := offerer.CreateOffer(ctx, testProfile(t))
	require.NoError(t, err)

	forged := &AnswerPayload{
		Type:          PayloadTypeAnswer,
		DID:           "did:beam:someoneelse",
		SessionAnswer: "whatever",
	}
	_, err = offerer.HandleScanned(ctx, marshal(t, forged))
	assert.True(t, IsKind(err, KindIdentityMismatch))
	assert.Equal(t, StateFailed, offerer.State())
	assert.Nil(t, offerer.Session())
	assert.NotEqual(t, offer.DID, forged.DID)
}

func TestMachine_DeclineReturnsToInit(t *testing.T) {
	offerer, answerer := newMachinePair()
	ctx := context.Background()

	offer, err := offerer.CreateOffer(ctx, testProfile(t))
	require.NoError(t, err)

	require.NoError(t, answerer.StartScanning())
	_, err = answerer.HandleScanned(ctx, marshal(t, offer))
	require.NoError(t, err)

	answerer.Decline()
	assert.Equal(t, StateInit, answerer.State())
	assert.Equal(t, RoleNone, answerer.Role())
	assert.Nil(t, answerer.PeerOffer())
	assert.Nil(t, answerer.Session())
}

func TestMachine_UnexpectedPayloadIsRecoverable(t *testing.T) {
	offerer, answerer := newMachinePair()
	ctx := context.Background()

	offer, err := offerer.CreateOffer(ctx, testProfile(t))
	require.NoError(t, err)

	// A connection payload while an own offer is outstanding is the
	// both-sides-offered collision. It must not kill the machine.
	_, err = offerer.HandleScanned(ctx, marshal(t, offer))
	assert.True(t, IsKind(err, KindUnsupportedPayload))
	assert.True(t, Recoverable(err))
	assert.Equal(t, StateOfferCreated, offerer.State())

	// An answer while scanning is equally out of place on the answerer.
	require.NoError(t, answerer.StartScanning())
	_, err = answerer.HandleScanned(ctx, marshal(t, &AnswerPayload{
		Type: PayloadTypeAnswer, DID: "did:beam:abc",
	}))
	assert.True(t, IsKind(err, KindUnsupportedPayload))
	assert.Equal(t, StateScanning, answerer.State())
}

func TestMachine_OnboardingScanLeavesStateAlone(t *testing.T) {
	_, answerer := newMachinePair()
	ctx := context.Background()

	require.NoError(t, answerer.StartScanning())
	scanned, err := answerer.HandleScanned(ctx,
		[]byte("https://beamlink.example/join?type=onboarding&did=did%3Abeam%3Aabc"))
	require.NoError(t, err)
	assert.Equal(t, PayloadTypeOnboarding, scanned.Type)
	assert.Equal(t, StateScanning, answerer.State())
}

func TestMachine_GarbageScanKeepsScanning(t *testing.T) {
	_, answerer := newMachinePair()
	ctx := context.Background()

	require.NoError(t, answerer.StartScanning())
	_, err := answerer.HandleScanned(ctx, []byte("not a payload"))
	assert.True(t, IsKind(err, KindPayloadParse))
	assert.Equal(t, StateScanning, answerer.State())
}

func TestMachine_CreateOfferTwiceRejected(t *testing.T) {
	offerer, _ := newMachinePair()
	ctx := context.Background()

	_, err := offerer.CreateOffer(ctx, testProfile(t))
	require.NoError(t, err)
	_, err = offerer.CreateOffer(ctx, testProfile(t))
	assert.True(t, IsKind(err, KindInvalidState))
}
