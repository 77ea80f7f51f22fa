package xep

import (
	"bytes"
	"strings"
	"time"
)

// Response framing markers. Acknowledgements carry their payload before
// a trailing <ACK>; error frames instead start with <ERR> and carry the
// device's message after it, with no trailing marker. The asymmetry
// matches the firmware's observed behaviour and is preserved as-is.
const (
	ackMarker = "<ACK>"
	errMarker = "<ERR>"
	markerLen = len(ackMarker)
)

var (
	ackBytes = []byte(ackMarker)
	errBytes = []byte(errMarker)
)

// writeCommand sends one textual command, newline-terminated, verbatim.
func (s *Session) writeCommand(cmd string) error {
	if s.port == nil {
		return &TransportError{Op: "write", Err: ErrNotConnected}
	}

	line := append([]byte(cmd), '\n')
	n, err := s.port.Write(line)
	if err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if n != len(line) {
		return &TransportError{Op: "write", Err: ErrWriteFailed}
	}
	return nil
}

// readResponse accumulates bytes from the port one at a time until a
// complete frame is recognised, and returns the acknowledgement
// payload. A leading <ERR> marker switches to draining the device's
// error text, which ends at a newline or when the stream goes quiet.
//
// The total wait is bounded by the configured timeout: a transport
// that stays silent past the deadline yields a TransportError rather
// than blocking forever. Individual reads are bounded by the port's
// own read timeout (pollInterval), so the deadline is checked often.
func (s *Session) readResponse() ([]byte, error) {
	if s.port == nil {
		return nil, &TransportError{Op: "read", Err: ErrNotConnected}
	}

	deadline := time.Now().Add(s.cfg.Timeout)
	buf := make([]byte, 0, 256)
	one := make([]byte, 1)
	errFrame := false

	for {
		n, err := s.port.Read(one)
		if n > 0 {
			buf = append(buf, one[0])
			switch {
			case errFrame:
				if one[0] == '\n' {
					return nil, errResponse(buf)
				}
			case len(buf) >= markerLen && bytes.HasSuffix(buf, ackBytes):
				return buf[:len(buf)-markerLen], nil
			case len(buf) == markerLen && bytes.HasPrefix(buf, errBytes):
				errFrame = true
			}
		}

		if err != nil {
			if errFrame {
				return nil, errResponse(buf)
			}
			return nil, &TransportError{Op: "read", Err: err}
		}
		if n == 0 && errFrame {
			// Quiet stream ends the device's error text.
			return nil, errResponse(buf)
		}
		if time.Now().After(deadline) {
			if errFrame {
				return nil, errResponse(buf)
			}
			return nil, &TransportError{Op: "read", Err: ErrReadTimeout}
		}
	}
}

// readFrame reads the response to a GetFrameRaw/GetFrameNormalized
// command. The framing is identical to readResponse; the payload is
// the raw sample bytes preceding the marker.
func (s *Session) readFrame() ([]byte, error) {
	return s.readResponse()
}

// errResponse converts an accumulated <ERR> frame into a ProtocolError
// carrying the device's message, whitespace-trimmed.
func errResponse(buf []byte) error {
	return &ProtocolError{Message: strings.TrimSpace(string(buf[markerLen:]))}
}
