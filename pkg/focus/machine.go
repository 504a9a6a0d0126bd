package focus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/landmarks"
)

// Notifier receives alert envelopes. *alert.Channel implements it.
type Notifier interface {
	Push(message string, opts alert.Options) alert.Envelope
	ClearReason(r alert.Reason)
}

// Recorder receives every classified sample and decides whether to persist
// it. It must not block.
type Recorder interface {
	Observe(ctx context.Context, s Sample) bool
}

// Input is everything one tick needs from the capture side.
type Input struct {
	JPEG    []byte
	Width   int // capture surface width; <= 0 means not ready
	Height  int // capture surface height; <= 0 means not ready
	Visible bool
	Now     time.Time
}

// Skip reasons reported in Result.Skipped.
const (
	SkipNoFrame  = "frame_not_ready"
	SkipHidden   = "page_hidden"
	SkipInactive = "inactive"
)

// Result is what one tick produced.
type Result struct {
	Sample    Sample          `json:"sample"`
	Skipped   string          `json:"skipped,omitempty"`
	Alert     *alert.Envelope `json:"alert,omitempty"`
	BreakHint bool            `json:"break_hint"`
	Recorded  bool            `json:"recorded"`
	Err       error           `json:"-"`
}

// Status is an externally observable view of the machine.
type Status struct {
	State     State          `json:"state"`
	Reason    string         `json:"reason,omitempty"`
	BreakHint bool           `json:"break_hint"`
	Episode   NoFaceEpisode  `json:"no_face_episode"`
	Streak    LowFocusStreak `json:"low_focus_streak"`
	Last      Sample         `json:"last_sample"`
}

// Machine is the per-tick focus state machine. It classifies a frame,
// updates telemetry, applies the no-face and low-focus alert rules and hands
// the sample to the recorder, in that order. Ticks must not overlap; the
// mutex only guards readers such as Status.
type Machine struct {
	cfg        Config
	provider   landmarks.Provider
	classifier *Classifier
	telemetry  *Telemetry
	notifier   Notifier
	recorder   Recorder
	logger     *slog.Logger

	mu        sync.RWMutex
	state     State
	reason    string
	breakHint bool
	episode   NoFaceEpisode
	streak    LowFocusStreak
	last      Sample
	startedAt time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithNotifier sets where alert envelopes are pushed.
func WithNotifier(n Notifier) MachineOption {
	return func(m *Machine) { m.notifier = n }
}

// WithRecorder sets the persistence policy fed with every sample.
func WithRecorder(r Recorder) MachineOption {
	return func(m *Machine) { m.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

// NewMachine creates a machine in the loading state.
func NewMachine(cfg Config, provider landmarks.Provider, telemetry *Telemetry, opts ...MachineOption) *Machine {
	if telemetry == nil {
		telemetry = NewTelemetry(cfg.StaleAfter)
	}
	m := &Machine{
		cfg:        cfg,
		provider:   provider,
		classifier: NewClassifier(cfg),
		telemetry:  telemetry,
		logger:     slog.Default(),
		state:      StateLoading,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config {
	return m.cfg
}

// Telemetry returns the telemetry the machine writes to.
func (m *Machine) Telemetry() *Telemetry {
	return m.telemetry
}

// Start moves a freshly acquired camera into the optimistic distracted state.
func (m *Machine) Start(now time.Time) {
	m.mu.Lock()
	m.state = StateDistracted
	m.reason = ""
	m.startedAt = now
	m.mu.Unlock()

	m.telemetry.Update(TelemetryDistracted, 0, now)
}

// Fail records a device-level failure. Only Reset leaves these states.
func (m *Machine) Fail(state State, reason string, now time.Time) {
	m.mu.Lock()
	m.state = state
	m.reason = reason
	m.breakHint = false
	m.streak.ConsecutiveLowTicks = 0
	m.mu.Unlock()

	m.telemetry.Update(state.Reduce(), 0, now)
}

// Reset returns the machine to loading and clears every transient counter.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateLoading
	m.reason = ""
	m.breakHint = false
	m.episode.Reset()
	m.streak.Reset()
	m.last = Sample{}
	m.startedAt = time.Time{}
	m.classifier.Reset()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Status returns a snapshot for display.
func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		State:     m.state,
		Reason:    m.reason,
		BreakHint: m.breakHint,
		Episode:   m.episode,
		Streak:    m.streak,
		Last:      m.last,
	}
}

// Tick runs one classification cycle.
func (m *Machine) Tick(ctx context.Context, in Input) Result {
	if in.Width <= 0 || in.Height <= 0 {
		return Result{Skipped: SkipNoFrame}
	}
	if !in.Visible {
		return Result{Skipped: SkipHidden}
	}

	m.mu.RLock()
	state, startedAt := m.state, m.startedAt
	m.mu.RUnlock()
	if state == StateLoading || state == StateNoPermission {
		return Result{Skipped: SkipInactive}
	}

	now := in.Now
	face, err := m.detect(ctx, in.JPEG, now.Sub(startedAt))
	var sample Sample
	if err == nil {
		sample, err = m.classifier.Classify(face, now)
	}
	if err != nil {
		derr := &DetectorError{Err: err}
		m.logger.Debug("classification failed", "error", err)
		m.Fail(StateError, derr.Error(), now)
		return Result{Sample: Sample{State: StateError, Timestamp: now}, Err: derr}
	}

	m.telemetry.Update(sample.State.Reduce(), sample.Confidence, now)

	res := Result{Sample: sample}

	m.mu.Lock()
	m.state = sample.State
	m.reason = ""
	m.last = sample

	noFaceAlert, episodeEnded := m.episode.Observe(sample.State == StateNoFace, now, m.cfg)

	hint := m.streak.Observe(sample, m.cfg)
	if m.streak.ConsecutiveLowTicks == 0 {
		m.breakHint = false
	}
	if hint {
		m.breakHint = true
	}
	res.BreakHint = m.breakHint
	m.mu.Unlock()

	if m.notifier != nil {
		if episodeEnded {
			m.notifier.ClearReason(alert.ReasonNoFace)
		}
		if noFaceAlert != nil {
			env := m.notifier.Push(m.noFaceMessage(noFaceAlert), alert.Options{
				Kind:       alert.KindWarning,
				Reason:     alert.ReasonNoFace,
				Duration:   m.cfg.AlertDuration,
				Alarm:      noFaceAlert.Alarm,
				Escalation: noFaceAlert.Count,
			})
			res.Alert = &env
		}
		if hint {
			env := m.notifier.Push(m.cfg.BreakHintMessage, alert.Options{
				Kind:     alert.KindWarning,
				Reason:   alert.ReasonDistracted,
				Duration: m.cfg.AlertDuration,
			})
			res.Alert = &env
		}
	}

	if m.recorder != nil {
		res.Recorded = m.recorder.Observe(ctx, sample)
	}

	return res
}

// detect calls the provider, converting a panic into an error so a
// misbehaving detector cannot take down the tick loop.
func (m *Machine) detect(ctx context.Context, jpeg []byte, ts time.Duration) (face *landmarks.Face, err error) {
	if m.provider == nil {
		return nil, ErrNoProvider
	}
	defer func() {
		if r := recover(); r != nil {
			face, err = nil, fmt.Errorf("landmark provider panic: %v", r)
		}
	}()
	return m.provider.Detect(ctx, jpeg, ts)
}

func (m *Machine) noFaceMessage(a *NoFaceAlert) string {
	if a.Count > 1 {
		return fmt.Sprintf("%s (reminder %d)", m.cfg.NoFaceMessage, a.Count)
	}
	return m.cfg.NoFaceMessage
}
