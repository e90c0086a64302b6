package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mzyy94/niimprint/internal/niim"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	opts := s.ConnectOptions()
	if opts.BaudRate != 115200 || opts.DataBits != 8 || opts.StopBits != 1 || opts.BufferSize != 255 {
		t.Errorf("ConnectOptions = %+v", opts)
	}
	if s.CommandTimeout() != 5*time.Second {
		t.Errorf("CommandTimeout = %v, want 5s", s.CommandTimeout())
	}
	if s.Density != 5 {
		t.Errorf("Density = %d, want 5", s.Density)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "config.yaml", "port: /dev/ttyACM0\nbaud_rate: 9600\ndensity: 3\n"},
		{"yml", "config.yml", "port: /dev/ttyACM0\nbaud_rate: 9600\ndensity: 3\n"},
		{"toml", "config.toml", "port = \"/dev/ttyACM0\"\nbaud_rate = 9600\ndensity = 3\n"},
		{"json", "config.json", `{"port": "/dev/ttyACM0", "baudRate": 9600, "density": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			s, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if s.Port != "/dev/ttyACM0" {
				t.Errorf("Port = %q", s.Port)
			}
			if s.BaudRate != 9600 {
				t.Errorf("BaudRate = %d, want 9600", s.BaudRate)
			}
			if s.Density != 3 {
				t.Errorf("Density = %d, want 3", s.Density)
			}
			// Unset keys keep their defaults.
			if s.ListenPort != 8080 {
				t.Errorf("ListenPort = %d, want default 8080", s.ListenPort)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "config.ini")); err == nil {
		t.Error("unsupported extension accepted")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}
	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("port = \n"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("malformed toml accepted")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"NIIMPRINT_PORT":        "COM3",
		"NIIMPRINT_BAUD_RATE":   "57600",
		"NIIMPRINT_DENSITY":     "2",
		"NIIMPRINT_LISTEN_PORT": "not-a-number",
		"NIIMPRINT_LOG_LEVEL":   "debug",
		"NIIMPRINT_DEVICE_NAME": "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	s := DefaultSettings()
	ApplyEnv(&s, lookup)

	if s.Port != "COM3" {
		t.Errorf("Port = %q, want COM3", s.Port)
	}
	if s.BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", s.BaudRate)
	}
	if s.Density != 2 {
		t.Errorf("Density = %d, want 2", s.Density)
	}
	if s.ListenPort != 8080 {
		t.Errorf("ListenPort = %d, want 8080 (invalid value ignored)", s.ListenPort)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", s.LogLevel)
	}
	if s.DeviceName != "Niimbot" {
		t.Errorf("DeviceName = %q, want default (empty value ignored)", s.DeviceName)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"density_low", func(s *Settings) { s.Density = 0 }},
		{"density_high", func(s *Settings) { s.Density = 6 }},
		{"baud", func(s *Settings) { s.BaudRate = 0 }},
		{"listen_port", func(s *Settings) { s.ListenPort = 70000 }},
		{"timeout", func(s *Settings) { s.CommandTimeoutMS = -1 }},
		{"dpi", func(s *Settings) { s.PreviewDPI = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			if err := s.Validate(); !errors.Is(err, niim.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestStore(t *testing.T) {
	st := NewStore(DefaultSettings())
	s := st.Get()
	s.Density = 4
	if err := st.Update(s); err != nil {
		t.Fatal(err)
	}
	if got := st.Get().Density; got != 4 {
		t.Errorf("Density = %d, want 4", got)
	}
	s.Density = 9
	if err := st.Update(s); err == nil {
		t.Error("invalid update accepted")
	}
	if got := st.Get().Density; got != 4 {
		t.Errorf("Density after rejected update = %d, want 4", got)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	for _, name := range []string{"yaml", "toml", "json"} {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			s.Port = "/dev/rfcomm0"
			s.Density = 2
			data, err := Marshal(s, name)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			path := filepath.Join(t.TempDir(), "settings."+name)
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got != s {
				t.Errorf("Load(Marshal(s)) = %+v, want %+v", got, s)
			}
		})
	}

	if _, err := Marshal(DefaultSettings(), "ini"); err == nil {
		t.Error("expected error for ini")
	}
}
