package xep

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyOpen is returned by Open when the session is already
	// open. Session state is left untouched.
	ErrAlreadyOpen = errors.New("radar connection already open")

	// ErrNotConnected is returned when a command is attempted with no
	// serial transport attached.
	ErrNotConnected = errors.New("serial connection not established")

	// ErrReadTimeout is returned when the device stays silent past the
	// configured response timeout.
	ErrReadTimeout = errors.New("timed out waiting for radar response")

	// ErrWriteFailed is returned when fewer bytes than expected were
	// written to the serial port.
	ErrWriteFailed = errors.New("short write to serial port")
)

// ConnectionError reports that the serial port could not be opened
// after exhausting every retry attempt.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to establish radar connection after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError reports a failure at the serial transport layer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError carries the device-supplied text of an <ERR> frame,
// whitespace-trimmed.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("radar error: %s", e.Message)
}

// DecodeError reports a frame payload whose length is not a whole
// number of sample elements.
type DecodeError struct {
	Length   int
	ElemSize int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame payload length %d is not a multiple of %d", e.Length, e.ElemSize)
}
