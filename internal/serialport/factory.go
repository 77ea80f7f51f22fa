package serialport

import (
	"go.bug.st/serial"
)

// Factory defines an interface for creating serial ports. The
// indirection lets the session layer retry opening a port and lets
// tests inject mock ports.
type Factory interface {
	// Open opens a serial port at the specified path with the given options.
	Open(path string, opts Options) (ControlPort, error)
}

// SerialFactory opens real serial ports via go.bug.st/serial.
type SerialFactory struct{}

// Open opens the port at path with the normalized options.
func (SerialFactory) Open(path string, opts Options) (ControlPort, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}
