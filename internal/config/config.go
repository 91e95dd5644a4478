// SPDX-License-Identifier: MIT

// Package config loads and validates runtime configuration for the
// engine: device/buffer selection, the phase-vocoder geometry and
// transformer chain, recording, and transport settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values and hardware limits, applied before any YAML file or
// command-line flag override.
const (
	DefaultChannels        = 1
	DefaultDeviceID        = MinDeviceID
	DefaultFormat          = "wav"
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100
	DefaultRecordInput     = false
	DefaultOutputFile      = ""
	DefaultVerbosity       = false

	DefaultPVSize     = 1024
	DefaultPVOlaps    = 4
	DefaultPVWindow   = "hann"
	DefaultPVAutoTune = false

	MinDeviceID   = -1
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// ChainStage names one transformer in the PV chain and its construction
// parameters, loaded directly from YAML (spec §4.4 — Transpose, Reverb,
// Gate).
type ChainStage struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params"`
}

// PVConfig holds the phase-vocoder geometry and transformer chain (spec
// §3, §4.4).
type PVConfig struct {
	Size     int          `yaml:"size"`
	Olaps    int          `yaml:"olaps"`
	Window   string       `yaml:"window"`
	AutoTune bool         `yaml:"auto_tune"`
	Chain    []ChainStage `yaml:"chain"`
}

// RecordingConfig holds settings related to audio recording.
type RecordingConfig struct {
	OutputDir   string  `yaml:"output_dir"`
	BitDepth    int     `yaml:"bit_depth"`
	MaxDuration int     `yaml:"max_duration_seconds"`
	SilenceTh   float64 `yaml:"silence_threshold"`
}

// TransportConfig holds settings for broadcasting PVStream rows to
// external consumers (visualizers, etc.).
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
}

// Config holds all runtime configuration for the engine. It is built by
// LoadConfig (YAML file plus environment overrides) and then further
// overridden by command-line flags in cmd.ParseArgs.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Command  string `yaml:"command,omitempty"`
	TUIMode  bool   `yaml:"-"`

	DeviceID        int     `yaml:"device_id"`
	OutputDeviceID  int     `yaml:"output_device_id"`
	Channels        int     `yaml:"channels"`
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	LowLatency      bool    `yaml:"low_latency"`

	RecordInputStream bool   `yaml:"record"`
	OutputFile        string `yaml:"output_file"`
	Format            string `yaml:"format"`
	Verbose           bool   `yaml:"verbose"`

	PV PVConfig `yaml:"pv"`

	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// defaults returns a Config populated with the built-in defaults, before
// any file or environment override is applied.
func defaults() Config {
	return Config{
		Debug:    false,
		LogLevel: "info",

		DeviceID:        DefaultDeviceID,
		OutputDeviceID:  DefaultDeviceID,
		Channels:        DefaultChannels,
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
		LowLatency:      DefaultLowLatency,

		RecordInputStream: DefaultRecordInput,
		OutputFile:        DefaultOutputFile,
		Format:            DefaultFormat,
		Verbose:           DefaultVerbosity,

		PV: PVConfig{
			Size:     DefaultPVSize,
			Olaps:    DefaultPVOlaps,
			Window:   DefaultPVWindow,
			AutoTune: DefaultPVAutoTune,
		},

		Recording: RecordingConfig{
			OutputDir:   "./recordings",
			BitDepth:    16,
			MaxDuration: 0,
			SilenceTh:   0.01,
		},

		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
		},
	}
}

// LoadConfig loads configuration from a YAML file at path. If path is
// empty, it searches default locations ("config.yaml"); if none is
// found, built-in defaults are used. Environment variable overrides and
// validation are applied after loading either way.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		candidates := []string{"config.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks invariants LoadConfig cannot recover from on its own.
// Geometry rounding (non-power-of-two PV size/olaps) is not a validation
// failure — pv.NewGeometry rounds up and warns (spec §7a) rather than
// rejecting.
func (c *Config) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate %.0f out of range [%d, %d]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
