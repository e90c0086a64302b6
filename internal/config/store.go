package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/printer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NIIMPRINT_"

// Settings holds the printer connection and service options.
type Settings struct {
	Port        string `json:"port" yaml:"port" toml:"port"` // serial device, empty = first found
	BaudRate    int    `json:"baudRate" yaml:"baud_rate" toml:"baud_rate"`
	DataBits    int    `json:"dataBits" yaml:"data_bits" toml:"data_bits"`
	StopBits    int    `json:"stopBits" yaml:"stop_bits" toml:"stop_bits"`
	Parity      string `json:"parity" yaml:"parity" toml:"parity"`
	BufferSize  int    `json:"bufferSize" yaml:"buffer_size" toml:"buffer_size"`
	FlowControl string `json:"flowControl" yaml:"flow_control" toml:"flow_control"`

	Density             int `json:"density" yaml:"density" toml:"density"`
	CommandTimeoutMS    int `json:"commandTimeoutMs" yaml:"command_timeout_ms" toml:"command_timeout_ms"`
	HeartbeatIntervalMS int `json:"heartbeatIntervalMs" yaml:"heartbeat_interval_ms" toml:"heartbeat_interval_ms"` // 0 disables the monitor

	ListenPort int    `json:"listenPort" yaml:"listen_port" toml:"listen_port"`
	DeviceName string `json:"deviceName" yaml:"device_name" toml:"device_name"`
	PreviewDPI int    `json:"previewDpi" yaml:"preview_dpi" toml:"preview_dpi"`
	LogLevel   string `json:"logLevel" yaml:"log_level" toml:"log_level"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{
		BaudRate:            printer.DefaultBaudRate,
		DataBits:            printer.DefaultDataBits,
		StopBits:            printer.DefaultStopBits,
		Parity:              "none",
		BufferSize:          printer.DefaultBufferSize,
		FlowControl:         "none",
		Density:             niim.DefaultDensity,
		CommandTimeoutMS:    int(niim.DefaultTimeout / time.Millisecond),
		HeartbeatIntervalMS: 5000,
		ListenPort:          8080,
		DeviceName:          "Niimbot",
		PreviewDPI:          203,
		LogLevel:            "info",
	}
}

// ConnectOptions returns the serial line settings.
func (s Settings) ConnectOptions() printer.ConnectOptions {
	return printer.ConnectOptions{
		BaudRate:    s.BaudRate,
		DataBits:    s.DataBits,
		StopBits:    s.StopBits,
		Parity:      s.Parity,
		BufferSize:  s.BufferSize,
		FlowControl: s.FlowControl,
	}
}

// CommandTimeout returns the command response deadline.
func (s Settings) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutMS) * time.Millisecond
}

// HeartbeatInterval returns the monitor poll interval; zero disables it.
func (s Settings) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalMS) * time.Millisecond
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	switch {
	case s.BaudRate <= 0:
		return fmt.Errorf("%w: baud rate %d", niim.ErrInvalidArgument, s.BaudRate)
	case s.Density < niim.MinDensity || s.Density > niim.MaxDensity:
		return fmt.Errorf("%w: density %d not in [%d, %d]", niim.ErrInvalidArgument, s.Density, niim.MinDensity, niim.MaxDensity)
	case s.CommandTimeoutMS < 0 || s.HeartbeatIntervalMS < 0:
		return fmt.Errorf("%w: negative interval", niim.ErrInvalidArgument)
	case s.ListenPort < 0 || s.ListenPort > 65535:
		return fmt.Errorf("%w: listen port %d", niim.ErrInvalidArgument, s.ListenPort)
	case s.PreviewDPI <= 0:
		return fmt.Errorf("%w: preview dpi %d", niim.ErrInvalidArgument, s.PreviewDPI)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Files
// ----------------------------------------------------------------------------

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Load reads settings from path on top of the defaults. The format follows
// the file extension: .yaml/.yml, .toml or .json.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	f, err := formatOf(path)
	if err != nil {
		return s, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := decode(f, data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Marshal renders s as "yaml", "toml" or "json".
func Marshal(s Settings, name string) ([]byte, error) {
	f, err := formatOf("." + name)
	if err != nil {
		return nil, err
	}
	return encode(f, s)
}

func decode(f format, data []byte, s *Settings) error {
	switch f {
	case formatYAML:
		return yaml.Unmarshal(data, s)
	case formatTOML:
		_, err := toml.Decode(string(data), s)
		return err
	default:
		return json.Unmarshal(data, s)
	}
}

func encode(f format, s Settings) ([]byte, error) {
	switch f {
	case formatYAML:
		return yaml.Marshal(s)
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(s, "", "  ")
		return append(data, '\n'), err
	}
}

// ----------------------------------------------------------------------------
// Environment
// ----------------------------------------------------------------------------

// ApplyEnv overrides s from NIIMPRINT_* variables returned by lookup
// (os.LookupEnv in production). Unparsable numbers are ignored.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) {
	env := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return v, ok && v != ""
	}
	envStr := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v, ok := env(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("ignoring invalid environment value", "key", EnvPrefix+key, "value", v)
			}
		}
	}

	envStr("PORT", &s.Port)
	envInt("BAUD_RATE", &s.BaudRate)
	envInt("DATA_BITS", &s.DataBits)
	envInt("STOP_BITS", &s.StopBits)
	envStr("PARITY", &s.Parity)
	envInt("BUFFER_SIZE", &s.BufferSize)
	envStr("FLOW_CONTROL", &s.FlowControl)
	envInt("DENSITY", &s.Density)
	envInt("COMMAND_TIMEOUT_MS", &s.CommandTimeoutMS)
	envInt("HEARTBEAT_INTERVAL_MS", &s.HeartbeatIntervalMS)
	envInt("LISTEN_PORT", &s.ListenPort)
	envStr("DEVICE_NAME", &s.DeviceName)
	envInt("PREVIEW_DPI", &s.PreviewDPI)
	envStr("LOG_LEVEL", &s.LogLevel)
}

// ----------------------------------------------------------------------------
// Store
// ----------------------------------------------------------------------------

// Store provides thread-safe access to the runtime settings. Updates live
// in memory for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore creates a Store holding initial.
func NewStore(initial Settings) *Store {
	return &Store{settings: initial}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update validates and replaces the settings.
func (s *Store) Update(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
