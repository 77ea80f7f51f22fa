package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort implements ControlPort with configurable behaviour for
// testing. It provides fine-grained control over reads, writes, errors,
// and modem control state.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// TimeoutReads makes Read return (0, nil) when the buffer is
	// empty, mimicking a real port whose read timeout expired. When
	// false an empty buffer reads as io.EOF.
	TimeoutReads bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// DTR and RTS record the most recent control line state
	DTR bool
	RTS bool

	// ReadTimeout is the most recent value passed to SetReadTimeout
	ReadTimeout time.Duration
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	return &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

// Read reads from the read buffer, optionally simulating errors or
// timeout-style empty reads.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.TimeoutReads && t.ReadBuffer.Len() == 0 {
		return 0, nil
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return t.CloseError
}

// SetDTR records the DTR line state.
func (t *TestablePort) SetDTR(dtr bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.DTR = dtr
	return nil
}

// SetRTS records the RTS line state.
func (t *TestablePort) SetRTS(rts bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.RTS = rts
	return nil
}

// SetReadTimeout implements ControlPort.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
}

// Written returns all data written to the port.
func (t *TestablePort) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// ResetWritten clears the write buffer so a test can observe only the
// commands issued after a setup phase.
func (t *TestablePort) ResetWritten() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteBuffer.Reset()
}

// Reset clears all buffers and resets state.
func (t *TestablePort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Reset()
	t.WriteBuffer.Reset()
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.Closed = false
	t.ReadError = nil
	t.WriteError = nil
	t.CloseError = nil
}

// MockFactory implements Factory for testing. It can fail a leading run
// of Open calls to exercise connection retry behaviour.
type MockFactory struct {
	mu sync.Mutex

	// Port is the port returned once the failure budget is spent
	Port ControlPort

	// Err is returned by failing Open calls
	Err error

	// FailFirst is the number of leading Open calls that fail with Err
	FailFirst int

	// OpenCalls records all Open calls
	OpenCalls []OpenCall
}

// OpenCall records details of an Open call.
type OpenCall struct {
	Path string
	Opts Options
}

// NewMockFactory creates a MockFactory returning the given port.
func NewMockFactory(port ControlPort) *MockFactory {
	return &MockFactory{Port: port}
}

// Open returns the configured port, or an error while the failure
// budget lasts or no port is configured.
func (f *MockFactory) Open(path string, opts Options) (ControlPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, OpenCall{
		Path: path,
		Opts: opts,
	})

	if len(f.OpenCalls) <= f.FailFirst || f.Port == nil {
		if f.Err != nil {
			return nil, f.Err
		}
		return nil, errors.New("no port available")
	}

	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockFactory) LastCall() *OpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}

// Calls returns the number of Open calls made so far.
func (f *MockFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.OpenCalls)
}
