package focus

import (
	"fmt"
	"time"
)

// Classifier defaults. These are heuristics; tests assert their monotonic
// effect rather than their exact values.
const (
	DefaultNoFaceConfidence = 0.2
	DefaultForwardThreshold = 0.11 // per-eye deviation from center
	DefaultGazeScoreSpan    = 0.22 // combined deviation that maps to gazeScore 0
	DefaultMinGazeScore     = 0.35
	DefaultGracePeriod      = 2 * time.Second
	DefaultGraceConfidence  = 0.45

	focusedBase     = 0.55
	focusedScale    = 0.45
	distractedBase  = 0.25
	distractedScale = 0.20
)

// State machine and alerting defaults.
const (
	DefaultTickInterval      = 800 * time.Millisecond
	DefaultNoFaceDelay       = 1500 * time.Millisecond
	DefaultNoFaceCooldown    = 20 * time.Second
	DefaultEscalateAfter     = 3  // alert count from which the alarm sounds
	DefaultLowFocusThreshold = 40 // percent
	DefaultLowFocusRunLength = 5  // ticks
	DefaultBreakHintCooldown = 10 * time.Second
	DefaultStaleAfter        = 6 * time.Second
)

// Default alert copy.
const (
	DefaultNoFaceMessage    = "We can't see you. Are you still there?"
	DefaultBreakHintMessage = "Your focus is dropping. Consider taking a short break."
)

// Config holds all tunable parameters for classification and alerting.
type Config struct {
	// Classifier
	NoFaceConfidence float64       `mapstructure:"no_face_confidence"`
	ForwardThreshold float64       `mapstructure:"forward_threshold"`
	GazeScoreSpan    float64       `mapstructure:"gaze_score_span"`
	MinGazeScore     float64       `mapstructure:"min_gaze_score"`
	GracePeriod      time.Duration `mapstructure:"grace_period"`
	GraceConfidence  float64       `mapstructure:"grace_confidence"`

	// Loop
	TickInterval time.Duration `mapstructure:"tick_interval"`

	// No-face alerting
	NoFaceDelay    time.Duration `mapstructure:"no_face_delay"`
	NoFaceCooldown time.Duration `mapstructure:"no_face_cooldown"`
	EscalateAfter  int           `mapstructure:"escalate_after"`
	NoFaceMessage  string        `mapstructure:"no_face_message"`

	// Low-focus alerting
	LowFocusThreshold int           `mapstructure:"low_focus_threshold"`
	LowFocusRunLength int           `mapstructure:"low_focus_run_length"`
	BreakHintCooldown time.Duration `mapstructure:"break_hint_cooldown"`
	BreakHintMessage  string        `mapstructure:"break_hint_message"`

	// Alert display duration (0 = alert.DefaultDuration)
	AlertDuration time.Duration `mapstructure:"alert_duration"`

	// Telemetry older than this is reported as stale while enabled
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		NoFaceConfidence: DefaultNoFaceConfidence,
		ForwardThreshold: DefaultForwardThreshold,
		GazeScoreSpan:    DefaultGazeScoreSpan,
		MinGazeScore:     DefaultMinGazeScore,
		GracePeriod:      DefaultGracePeriod,
		GraceConfidence:  DefaultGraceConfidence,

		TickInterval: DefaultTickInterval,

		NoFaceDelay:    DefaultNoFaceDelay,
		NoFaceCooldown: DefaultNoFaceCooldown,
		EscalateAfter:  DefaultEscalateAfter,
		NoFaceMessage:  DefaultNoFaceMessage,

		LowFocusThreshold: DefaultLowFocusThreshold,
		LowFocusRunLength: DefaultLowFocusRunLength,
		BreakHintCooldown: DefaultBreakHintCooldown,
		BreakHintMessage:  DefaultBreakHintMessage,

		StaleAfter: DefaultStaleAfter,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.ForwardThreshold <= 0 || c.ForwardThreshold > 0.5 {
		return fmt.Errorf("forward_threshold must be in (0, 0.5], got %v", c.ForwardThreshold)
	}
	if c.GazeScoreSpan <= 0 {
		return fmt.Errorf("gaze_score_span must be positive, got %v", c.GazeScoreSpan)
	}
	if c.EscalateAfter < 1 {
		return fmt.Errorf("escalate_after must be at least 1, got %d", c.EscalateAfter)
	}
	if c.LowFocusRunLength < 1 {
		return fmt.Errorf("low_focus_run_length must be at least 1, got %d", c.LowFocusRunLength)
	}
	if c.LowFocusThreshold < 0 || c.LowFocusThreshold > 100 {
		return fmt.Errorf("low_focus_threshold must be 0-100, got %d", c.LowFocusThreshold)
	}
	return nil
}
