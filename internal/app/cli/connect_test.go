package cli

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatenko/beamlink/internal/handshake"
	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/transport"
	"github.com/okatenko/beamlink/internal/transport/memtransport"
)

func testMachine() *handshake.Machine {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return handshake.NewMachine(func() transport.Session {
		s, _ := memtransport.NewPair()
		return s
	}, logger)
}

func TestArmScanner_FromInit(t *testing.T) {
	a := &App{machine: testMachine()}

	require.NoError(t, a.armScanner())
	assert.Equal(t, handshake.StateScanning, a.machine.State())

	// Arming again while already scanning is a no-op.
	require.NoError(t, a.armScanner())
	assert.Equal(t, handshake.StateScanning, a.machine.State())
}

func TestArmScanner_RecoversFromFailed(t *testing.T) {
	a := &App{machine: testMachine()}
	a.machine.Fail(errors.New("channel dropped"))
	require.Equal(t, handshake.StateFailed, a.machine.State())

	require.NoError(t, a.armScanner())
	assert.Equal(t, handshake.StateScanning, a.machine.State())
}
