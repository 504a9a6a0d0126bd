package focus

import (
	"sync"
	"time"
)

// TelemetryState is the reduced, UI-facing state vocabulary.
type TelemetryState string

const (
	TelemetryFocused    TelemetryState = "focused"
	TelemetryDistracted TelemetryState = "distracted"
	TelemetryNoFace     TelemetryState = "no_face"
	TelemetryError      TelemetryState = "error"
	TelemetryLoading    TelemetryState = "loading"
	TelemetryOff        TelemetryState = "off"
)

// Snapshot is a point-in-time copy of the telemetry.
type Snapshot struct {
	State      TelemetryState `json:"state"`
	Confidence float64        `json:"confidence"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// View is a snapshot interpreted for display at a given instant.
type View struct {
	Snapshot
	Enabled bool `json:"enabled"`
	Stale   bool `json:"stale"` // enabled but no update for StaleAfter: show "waiting"
}

// TelemetryListener observes telemetry updates.
type TelemetryListener func(Snapshot)

// Telemetry is the process-wide projection of the focus state for UIs.
// Only the state machine and the lifecycle controller mutate it.
type Telemetry struct {
	staleAfter time.Duration

	mu        sync.RWMutex
	snap      Snapshot
	enabled   bool
	listeners []TelemetryListener
}

// NewTelemetry creates telemetry in the off state.
func NewTelemetry(staleAfter time.Duration) *Telemetry {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Telemetry{
		staleAfter: staleAfter,
		snap:       Snapshot{State: TelemetryOff},
	}
}

// Subscribe registers a listener called after every change.
func (t *Telemetry) Subscribe(l TelemetryListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// Update records a new state. While enabled, UpdatedAt never moves backwards.
func (t *Telemetry) Update(state TelemetryState, confidence float64, now time.Time) {
	t.mu.Lock()
	if t.enabled && now.Before(t.snap.UpdatedAt) {
		now = t.snap.UpdatedAt
	}
	t.snap = Snapshot{State: state, Confidence: clamp(confidence, 0, 1), UpdatedAt: now}
	t.enabled = true
	snap, listeners := t.snap, t.listeners
	t.mu.Unlock()

	t.notify(snap, listeners)
}

// Loading marks tracking as (re-)enabled and waiting for the first tick.
func (t *Telemetry) Loading(now time.Time) {
	t.mu.Lock()
	t.snap = Snapshot{State: TelemetryLoading, UpdatedAt: now}
	t.enabled = true
	snap, listeners := t.snap, t.listeners
	t.mu.Unlock()

	t.notify(snap, listeners)
}

// Off marks tracking as disabled.
func (t *Telemetry) Off(now time.Time) {
	t.mu.Lock()
	t.snap = Snapshot{State: TelemetryOff, UpdatedAt: now}
	t.enabled = false
	snap, listeners := t.snap, t.listeners
	t.mu.Unlock()

	t.notify(snap, listeners)
}

// Snapshot returns the current telemetry.
func (t *Telemetry) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// View interprets the telemetry at now, flagging stale data.
func (t *Telemetry) View(now time.Time) View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return View{
		Snapshot: t.snap,
		Enabled:  t.enabled,
		Stale:    t.enabled && now.Sub(t.snap.UpdatedAt) > t.staleAfter,
	}
}

func (t *Telemetry) notify(snap Snapshot, listeners []TelemetryListener) {
	for _, l := range listeners {
		l(snap)
	}
}
