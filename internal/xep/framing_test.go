package xep

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xeplink/internal/serialport"
)

// newTestSession connects a session to a TestablePort, consuming the
// handshake exchange so tests observe only their own traffic.
func newTestSession(t *testing.T, port *serialport.TestablePort) *Session {
	t.Helper()

	port.AddReadData([]byte(ackMarker))
	s, err := Connect(Config{
		Port:          "/dev/ttyMOCK",
		Timeout:       250 * time.Millisecond,
		RetryAttempts: 1,
	}, WithFactory(serialport.NewMockFactory(port)))
	require.NoError(t, err)

	port.ResetWritten()
	return s
}

func TestReadResponseAckPayload(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	port.AddReadData([]byte("181<ACK>"))
	payload, err := s.readResponse()
	require.NoError(t, err)
	require.Equal(t, "181", string(payload))
}

func TestReadResponseEmptyAck(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	port.AddReadData([]byte(ackMarker))
	payload, err := s.readResponse()
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestReadResponseErrorFrame(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	port.AddReadData([]byte("<ERR>Bad register\n"))
	_, err := s.readResponse()

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "Bad register", protoErr.Message)
}

func TestReadResponseErrorFrameWithoutNewline(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	// The stream ends before a newline arrives; the drained text is
	// still surfaced.
	port.AddReadData([]byte("<ERR>register out of range"))
	_, err := s.readResponse()

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "register out of range", protoErr.Message)
}

func TestReadResponseErrorFrameQuietStream(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	// Timeout-style empty reads after the message end it, mimicking a
	// real port whose device went quiet.
	port.TimeoutReads = true
	port.AddReadData([]byte("<ERR>stalled"))
	_, err := s.readResponse()

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "stalled", protoErr.Message)
}

func TestReadResponseDeadline(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)
	s.cfg.Timeout = 30 * time.Millisecond

	port.TimeoutReads = true
	start := time.Now()
	_, err := s.readResponse()
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrReadTimeout)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestReadResponseTransportError(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	readErr := errors.New("device unplugged")
	port.ReadError = readErr
	_, err := s.readResponse()

	require.ErrorIs(t, err, readErr)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, "read", transportErr.Op)
}

func TestWriteCommandAppendsNewline(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	require.NoError(t, s.writeCommand("GetFrameRaw()"))
	require.Equal(t, "GetFrameRaw()\n", string(port.Written()))
}

func TestWriteCommandErrors(t *testing.T) {
	port := serialport.NewTestablePort()
	s := newTestSession(t, port)

	writeErr := errors.New("broken pipe")
	port.WriteError = writeErr
	err := s.writeCommand("Close()")
	require.ErrorIs(t, err, writeErr)

	// Without a transport attached every command fails the same way.
	s.port = nil
	err = s.writeCommand("Close()")
	require.ErrorIs(t, err, ErrNotConnected)
	_, err = s.readResponse()
	require.ErrorIs(t, err, ErrNotConnected)
}
