// Package alert holds the single live user-facing notification and the
// observer that keeps the audible alarm in lockstep with it.
package alert

import (
	"encoding/json"
	"time"
)

// DefaultDuration is how long an envelope stays live unless overridden.
const DefaultDuration = 6 * time.Second

// Kind is the visual severity of an alert.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Reason identifies the condition that raised an alert.
type Reason string

const (
	ReasonNoFace     Reason = "no_face"
	ReasonDistracted Reason = "distracted"
	ReasonOther      Reason = "other"
)

// Envelope is the full payload of the currently displayed alert.
type Envelope struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	Reason     Reason        `json:"reason"`
	Message    string        `json:"message"`
	Duration   time.Duration `json:"-"`
	Alarm      bool          `json:"alarm"`
	Escalation int           `json:"escalation_count"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ExpiresAt returns when the envelope auto-dismisses.
func (e Envelope) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.Duration)
}

// MarshalJSON renders Duration in milliseconds for UI consumers.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms"`
	}{plain(e), e.Duration.Milliseconds()})
}

// Options configures a pushed envelope. Zero values select defaults:
// KindInfo, ReasonOther, DefaultDuration.
type Options struct {
	Kind       Kind
	Reason     Reason
	Duration   time.Duration
	Alarm      bool
	Escalation int
}
