// Package audioio provides audio output for the alarm.
//
// Backends:
//   - exec: pipes raw PCM16 into a command-line player (aplay on Linux,
//     sox "play" elsewhere)
//   - mock: records writes in memory for tests and headless hosts
package audioio

import (
	"fmt"
	"time"
)

// Backend names an audio output implementation.
type Backend string

const (
	// BackendAuto picks exec when a player binary is on PATH, mock otherwise.
	BackendAuto Backend = "auto"
	BackendExec Backend = "exec"
	BackendMock Backend = "mock"
)

// Config holds audio output configuration.
type Config struct {
	Backend Backend `mapstructure:"backend" json:"backend"`

	// SampleRate in Hz. Default: 22050
	SampleRate int `mapstructure:"sample_rate" json:"sample_rate"`

	// Channels. Default: 1 (mono)
	Channels int `mapstructure:"channels" json:"channels"`

	// BufferDuration is the size of one written chunk. Default: 20ms
	BufferDuration time.Duration `mapstructure:"buffer_duration" json:"buffer_duration"`

	// Device is passed to the player when set, e.g. "plughw:1,0" for aplay.
	Device string `mapstructure:"device" json:"device"`

	// Command overrides the player command line. The raw stream is written
	// to its stdin.
	Command []string `mapstructure:"command" json:"command,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     22050,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendExec, BackendMock:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per chunk.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}
