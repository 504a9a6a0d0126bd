// Package focus turns per-frame facial landmarks into a stable attention
// signal: a gaze classifier with a grace period, a per-tick state machine,
// and the no-face / low-focus alerting rules.
package focus

import "time"

// State is the discrete attention classification.
type State string

const (
	StateLoading      State = "loading"
	StateNoPermission State = "no_permission"
	StateNoFace       State = "no_face"
	StateDistracted   State = "distracted"
	StateFocused      State = "focused"
	StateError        State = "error"
)

// Recordable reports whether samples in this state may be persisted.
func (s State) Recordable() bool {
	return s == StateFocused || s == StateDistracted
}

// Reduce maps a State onto the telemetry vocabulary.
func (s State) Reduce() TelemetryState {
	switch s {
	case StateFocused:
		return TelemetryFocused
	case StateDistracted:
		return TelemetryDistracted
	case StateNoFace:
		return TelemetryNoFace
	case StateLoading:
		return TelemetryLoading
	default:
		return TelemetryError
	}
}

// Sample is one tick's classification. It is consumed immediately and
// never persisted directly.
type Sample struct {
	State      State     `json:"state"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Focused reports whether the sample counts as focused.
func (s Sample) Focused() bool {
	return s.State == StateFocused
}

// Percent returns the confidence as a rounded integer percentage.
func (s Sample) Percent() int {
	return percent(s.Confidence)
}
