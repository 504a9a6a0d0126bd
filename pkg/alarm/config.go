// Package alarm plays the repeating audible alarm that accompanies an
// escalated alert.
package alarm

import (
	"fmt"
	"time"
)

// Defaults for the beep pattern.
const (
	DefaultFrequency    = 880.0
	DefaultBeeps        = 3
	DefaultSpacing      = 220 * time.Millisecond
	DefaultToneDuration = 120 * time.Millisecond
	DefaultLoopInterval = 1200 * time.Millisecond
	DefaultVolume       = 0.35
)

// Config describes the beep pattern.
type Config struct {
	Frequency    float64       `mapstructure:"frequency"`     // Hz
	Beeps        int           `mapstructure:"beeps"`         // tones per pattern
	Spacing      time.Duration `mapstructure:"spacing"`       // between tone onsets
	ToneDuration time.Duration `mapstructure:"tone_duration"` // length of one tone
	LoopInterval time.Duration `mapstructure:"loop_interval"` // between pattern onsets
	Volume       float64       `mapstructure:"volume"`        // 0-1
}

// DefaultConfig returns the standard three-beep pattern.
func DefaultConfig() Config {
	return Config{
		Frequency:    DefaultFrequency,
		Beeps:        DefaultBeeps,
		Spacing:      DefaultSpacing,
		ToneDuration: DefaultToneDuration,
		LoopInterval: DefaultLoopInterval,
		Volume:       DefaultVolume,
	}
}

// Validate checks that the pattern is playable.
func (c Config) Validate() error {
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %v", c.Frequency)
	}
	if c.Beeps < 1 {
		return fmt.Errorf("beeps must be at least 1, got %d", c.Beeps)
	}
	if c.ToneDuration <= 0 {
		return fmt.Errorf("tone_duration must be positive, got %v", c.ToneDuration)
	}
	if c.Spacing < c.ToneDuration {
		return fmt.Errorf("spacing %v shorter than tone_duration %v", c.Spacing, c.ToneDuration)
	}
	if pattern := c.Spacing * time.Duration(c.Beeps-1); c.LoopInterval <= pattern {
		return fmt.Errorf("loop_interval %v must exceed the pattern length %v", c.LoopInterval, pattern)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be 0-1, got %v", c.Volume)
	}
	return nil
}
