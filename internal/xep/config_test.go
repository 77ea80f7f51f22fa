package xep

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Port: "/dev/ttyACM0"}.Normalize()

	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.BaudRate)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.RetryAttempts != 20 {
		t.Errorf("RetryAttempts = %d, want 20", cfg.RetryAttempts)
	}
	if cfg.PacketVersion != PacketVersionLegacy {
		t.Errorf("PacketVersion = %d, want legacy", cfg.PacketVersion)
	}
}

func TestConfigNormalizeKeepsExplicitValues(t *testing.T) {
	in := Config{
		Port:          "/dev/ttyACM1",
		BaudRate:      921600,
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		PacketVersion: PacketVersionV2,
	}
	if got := in.Normalize(); got != in {
		t.Errorf("Normalize changed explicit config: %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid legacy", Config{Port: "COM3"}, false},
		{"valid v2", Config{Port: "COM3", PacketVersion: PacketVersionV2}, false},
		{"missing port", Config{}, true},
		{"unknown packet version", Config{Port: "COM3", PacketVersion: 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, "radar.json",
		`{"port": "/dev/ttyACM1", "timeout": "2s", "retry_attempts": 5}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Port != "/dev/ttyACM1" {
		t.Errorf("Port = %q, want /dev/ttyACM1", cfg.Port)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.RetryAttempts)
	}
	// Omitted fields fall back to defaults.
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want default 115200", cfg.BaudRate)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "radar.yaml", `{"port": "COM3"}`},
		{"invalid JSON", "radar.json", `{"port": `},
		{"invalid timeout", "radar.json", `{"port": "COM3", "timeout": "fast"}`},
		{"missing port", "radar.json", `{"baud_rate": 115200}`},
		{"bad packet version", "radar.json", `{"port": "COM3", "packet_version": 9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.file, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig succeeded, want error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadConfig succeeded for a missing file")
	}
}
