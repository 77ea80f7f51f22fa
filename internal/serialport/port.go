// Package serialport abstracts the serial transport used to talk to an
// XEP radar module. The interfaces here let the protocol client be
// exercised in tests without real hardware attached.
package serialport

import (
	"io"
	"time"
)

// Port defines the minimal interface needed for a serial port.
type Port interface {
	io.ReadWriter
	io.Closer
}

// ControlPort extends Port with the modem-control and timeout calls the
// radar handshake requires. Ports opened by go.bug.st/serial satisfy it
// natively.
type ControlPort interface {
	Port
	// SetDTR asserts or clears the DTR control line.
	SetDTR(dtr bool) error
	// SetRTS asserts or clears the RTS control line.
	SetRTS(rts bool) error
	// SetReadTimeout bounds how long a single Read may block.
	SetReadTimeout(timeout time.Duration) error
}
