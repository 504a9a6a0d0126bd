package persist

import (
	"fmt"
	"time"
)

const (
	DefaultMinWriteInterval = 15 * time.Second
	DefaultIdleWindow       = 5 * time.Second
	DefaultActivityTick     = time.Second
	DefaultWriteTimeout     = 5 * time.Second
)

// Config holds persistence tunables.
type Config struct {
	SubjectID        string        `mapstructure:"subject_id"`
	MinWriteInterval time.Duration `mapstructure:"min_write_interval"`
	IdleWindow       time.Duration `mapstructure:"idle_window"`
	ActivityTick     time.Duration `mapstructure:"activity_tick"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the standard write policy.
func DefaultConfig() Config {
	return Config{
		SubjectID:        "local",
		MinWriteInterval: DefaultMinWriteInterval,
		IdleWindow:       DefaultIdleWindow,
		ActivityTick:     DefaultActivityTick,
		WriteTimeout:     DefaultWriteTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SubjectID == "" {
		return fmt.Errorf("subject_id is required")
	}
	if c.MinWriteInterval <= 0 {
		return fmt.Errorf("min_write_interval must be positive, got %v", c.MinWriteInterval)
	}
	if c.IdleWindow <= 0 {
		return fmt.Errorf("idle_window must be positive, got %v", c.IdleWindow)
	}
	if c.ActivityTick <= 0 {
		return fmt.Errorf("activity_tick must be positive, got %v", c.ActivityTick)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got %v", c.WriteTimeout)
	}
	return nil
}
