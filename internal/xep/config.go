package xep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConnectString selects the X4 sensor module in OpenRadar().
const DefaultConnectString = "X4"

// Packet framing versions accepted in Config.PacketVersion. The v2 tag
// is reserved for future framing variants; current decoding does not
// differentiate.
const (
	PacketVersionLegacy = 0
	PacketVersionV2     = 1
)

// Config holds the connection parameters for one radar link. It is
// constructed by the caller and immutable once a session is
// established. Discovering which physical port the radar enumerates as
// is the caller's concern.
type Config struct {
	// Port is the serial device path, e.g. "/dev/ttyACM0" or "COM3".
	Port string

	// BaudRate is nominal for USB CDC modules. Defaults to 115200.
	BaudRate int

	// Timeout is the hard upper bound on the total wait for one
	// response. Defaults to 5s.
	Timeout time.Duration

	// RetryAttempts is the number of times opening the serial port is
	// attempted before Connect gives up. Defaults to 20.
	RetryAttempts int

	// PacketVersion is PacketVersionLegacy or PacketVersionV2.
	PacketVersion int
}

// Normalize applies defaults for any unset values.
func (c Config) Normalize() Config {
	cfg := c
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 20
	}
	return cfg
}

// Validate checks the fields that Normalize cannot default.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port is required")
	}
	if c.PacketVersion != PacketVersionLegacy && c.PacketVersion != PacketVersionV2 {
		return fmt.Errorf("unsupported packet version %d", c.PacketVersion)
	}
	return nil
}

// fileConfig is the JSON schema for LoadConfig. Fields omitted from
// the file retain their default values, so partial configs are safe.
type fileConfig struct {
	Port          *string `json:"port,omitempty"`
	BaudRate      *int    `json:"baud_rate,omitempty"`
	Timeout       *string `json:"timeout,omitempty"` // duration string like "5s"
	RetryAttempts *int    `json:"retry_attempts,omitempty"`
	PacketVersion *int    `json:"packet_version,omitempty"`
}

// LoadConfig loads a Config from a JSON file. The file is validated to
// ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := Config{}.Normalize()
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.BaudRate != nil {
		cfg.BaudRate = *fc.BaudRate
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout %q: %w", *fc.Timeout, err)
		}
		cfg.Timeout = d
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
	if fc.PacketVersion != nil {
		cfg.PacketVersion = *fc.PacketVersion
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
