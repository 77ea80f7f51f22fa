// Package xep implements the serial command/response protocol spoken by
// Novelda XEP radar modules: connection establishment with retry,
// textual command transmission, <ACK>/<ERR> framed response parsing,
// chip register configuration, and frame payload decoding into real or
// down-converted complex samples.
package xep

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banshee-data/xeplink/internal/serialport"
)

// pollInterval bounds a single blocking read on the port so the
// response deadline in readResponse is honoured promptly.
const pollInterval = 50 * time.Millisecond

// Session owns one serial link to an XEP radar module. Exactly one
// session owns a transport at a time; the transport is never shared.
//
// A single mutex is held for the full duration of every
// command/response exchange, so a second command can never interleave
// with a pending response.
type Session struct {
	cfg Config
	log *zap.Logger

	mu              sync.Mutex
	port            serialport.ControlPort
	open            bool
	samplesPerFrame int
	downConverter   bool
}

type sessionOptions struct {
	logger  *zap.Logger
	factory serialport.Factory
}

// Option configures a Session before it connects.
type Option func(*sessionOptions)

// WithLogger attaches a structured logger to the session. The default
// is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *sessionOptions) { o.logger = logger }
}

// WithFactory replaces the real serial port factory. Used by tests to
// run the protocol against a mock port.
func WithFactory(factory serialport.Factory) Option {
	return func(o *sessionOptions) { o.factory = factory }
}

// Connect opens the serial port described by cfg and performs the
// NVA_CreateHandle handshake. Opening the port is retried up to
// cfg.RetryAttempts times; intermediate failures are logged as
// warnings and only the final one surfaces, wrapped in a
// ConnectionError. No session escapes on failure.
func Connect(cfg Config, opts ...Option) (*Session, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("radar config: %w", err)
	}

	options := sessionOptions{
		logger:  zap.NewNop(),
		factory: serialport.SerialFactory{},
	}
	for _, opt := range opts {
		opt(&options)
	}

	log := options.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.String("port", cfg.Port),
	)

	portOpts := serialport.Options{BaudRate: cfg.BaudRate}

	var port serialport.ControlPort
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		port, lastErr = options.factory.Open(cfg.Port, portOpts)
		if lastErr == nil {
			break
		}
		port = nil
		if attempt < cfg.RetryAttempts {
			log.Warn("connection attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("retry_attempts", cfg.RetryAttempts),
				zap.Error(lastErr))
		}
	}
	if port == nil {
		return nil, &ConnectionError{Attempts: cfg.RetryAttempts, Err: lastErr}
	}

	s := &Session{cfg: cfg, log: log, port: port}
	if err := s.handshake(); err != nil {
		port.Close()
		return nil, err
	}

	log.Debug("radar handle created")
	return s, nil
}

// handshake signals presence to the module via the control lines and
// creates the device-side handle.
func (s *Session) handshake() error {
	if err := s.port.SetDTR(true); err != nil {
		return &TransportError{Op: "set dtr", Err: err}
	}
	if err := s.port.SetRTS(true); err != nil {
		return &TransportError{Op: "set rts", Err: err}
	}
	if err := s.port.SetReadTimeout(pollInterval); err != nil {
		return &TransportError{Op: "set read timeout", Err: err}
	}

	if err := s.writeCommand("NVA_CreateHandle()"); err != nil {
		return err
	}
	_, err := s.readResponse()
	return err
}

// Open opens the radar module itself and primes the samples-per-frame
// count. connectString selects the sensor, typically
// DefaultConnectString. Returns ErrAlreadyOpen, with all session state
// untouched, if the session is already open.
func (s *Session) Open(connectString string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return ErrAlreadyOpen
	}

	if err := s.writeCommand(fmt.Sprintf("OpenRadar(%s)", connectString)); err != nil {
		return err
	}
	if _, err := s.readResponse(); err != nil {
		return err
	}
	s.open = true
	s.log.Info("radar open", zap.String("connect_string", connectString))

	return s.refreshSamplersLocked()
}

// Close releases the device-side handle and the serial port. It is
// idempotent: once the transport has been released, further calls
// return nil without touching the device. A failed device-side close
// is still followed by releasing the local port unconditionally.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	var cmdErr error
	if s.open {
		if cmdErr = s.writeCommand("Close()"); cmdErr == nil {
			_, cmdErr = s.readResponse()
		}
		if cmdErr != nil {
			s.log.Warn("device close command failed", zap.Error(cmdErr))
		}
	}

	closeErr := s.port.Close()
	s.port = nil
	s.open = false
	s.log.Info("radar closed")

	if cmdErr != nil {
		return cmdErr
	}
	if closeErr != nil {
		return &TransportError{Op: "close", Err: closeErr}
	}
	return nil
}

// Connection opens the radar, runs fn, and guarantees Close on every
// exit path. The error from fn wins over a close error.
func (s *Session) Connection(connectString string, fn func(*Session) error) (err error) {
	if err = s.Open(connectString); err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// UpdateChip writes a register on the radar chip and then re-reads the
// samples-per-frame count, since register changes can alter frame
// geometry. Writing a down-converter register switches the decode mode
// for every frame read after this call.
func (s *Session) UpdateChip(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == RegDDCEnable || name == RegDownConvert {
		// Flip the mode before the command goes out so frames decoded
		// after this call always use the new mode.
		s.downConverter = value != 0
	}

	cmd := fmt.Sprintf("VarSetValue_ByName(%s,%s)", name, formatRegisterValue(value))
	if err := s.writeCommand(cmd); err != nil {
		return err
	}
	if _, err := s.readResponse(); err != nil {
		return err
	}

	return s.refreshSamplersLocked()
}

// formatRegisterValue renders integral values without a decimal point,
// matching what the firmware parser expects.
func formatRegisterValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// GetFrameRaw requests one unprocessed frame from the radar.
func (s *Session) GetFrameRaw() (Samples, error) {
	return s.getFrame("GetFrameRaw()")
}

// GetFrameNormalized requests one firmware-normalised frame. The wire
// decoding is identical to GetFrameRaw; the distinction is carried by
// the command alone.
func (s *Session) GetFrameNormalized() (Samples, error) {
	return s.getFrame("GetFrameNormalized()")
}

func (s *Session) getFrame(cmd string) (Samples, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeCommand(cmd); err != nil {
		return Samples{}, err
	}
	payload, err := s.readFrame()
	if err != nil {
		return Samples{}, err
	}
	return decodeSamples(payload, s.downConverter)
}

// refreshSamplersLocked queries the device for the scalar sample count
// per frame. The caller must hold s.mu.
func (s *Session) refreshSamplersLocked() error {
	if err := s.writeCommand(fmt.Sprintf("VarGetValue_ByName(%s)", samplersPerFrameVar)); err != nil {
		return err
	}
	payload, err := s.readResponse()
	if err != nil {
		return err
	}

	text := strings.TrimSpace(string(payload))
	n, err := strconv.Atoi(text)
	if err != nil {
		return &ProtocolError{Message: fmt.Sprintf("invalid %s value %q", samplersPerFrameVar, text)}
	}
	s.samplesPerFrame = n
	return nil
}

// IsOpen reports whether OpenRadar has completed on this session.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SamplesPerFrame returns the device-reported scalar sample count per
// frame. It is zero until the session has been opened, and refreshed
// after every register write.
func (s *Session) SamplesPerFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samplesPerFrame
}

// DownConverterEnabled reports whether frames decode as complex I/Q
// pairs.
func (s *Session) DownConverterEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downConverter
}
