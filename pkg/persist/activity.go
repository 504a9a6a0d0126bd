package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ActivityTracker is the camera-free variant of Throttler. Focus is inferred
// from page visibility, input focus and recent user activity; the write
// policy and area handling are the same.
type ActivityTracker struct {
	*writer
	subjectID  string
	idleWindow time.Duration
	tick       time.Duration

	mu           sync.Mutex
	policy       Policy
	visible      bool
	inputFocused bool
	lastActivity time.Time
}

// NewActivityTracker creates a tracker writing to sink. areas may be nil.
func NewActivityTracker(cfg Config, sink Sink, areas *AreaCache, logger *slog.Logger) *ActivityTracker {
	return &ActivityTracker{
		writer:     newWriter(sink, areas, cfg.WriteTimeout, logger),
		subjectID:  cfg.SubjectID,
		idleWindow: cfg.IdleWindow,
		tick:       cfg.ActivityTick,
		policy:     Policy{MinInterval: cfg.MinWriteInterval},
	}
}

// Touch records user input at now.
func (a *ActivityTracker) Touch(now time.Time) {
	a.mu.Lock()
	if now.After(a.lastActivity) {
		a.lastActivity = now
	}
	a.mu.Unlock()
}

// SetVisible records page visibility.
func (a *ActivityTracker) SetVisible(v bool) {
	a.mu.Lock()
	a.visible = v
	a.mu.Unlock()
}

// SetFocused records whether the input surface has focus.
func (a *ActivityTracker) SetFocused(f bool) {
	a.mu.Lock()
	a.inputFocused = f
	a.mu.Unlock()
}

// Focused reports the inferred focus at now.
func (a *ActivityTracker) Focused(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.focusedLocked(now)
}

func (a *ActivityTracker) focusedLocked(now time.Time) bool {
	return a.visible && a.inputFocused &&
		!a.lastActivity.IsZero() && now.Sub(a.lastActivity) < a.idleWindow
}

// Sample evaluates focus at now and submits a record when the policy fires.
func (a *ActivityTracker) Sample(ctx context.Context, now time.Time) bool {
	a.mu.Lock()
	focused := a.focusedLocked(now)
	fire := a.policy.Decide(focused, now)
	a.mu.Unlock()
	if !fire {
		return false
	}

	a.submit(ctx, newRecord(a.subjectID, focused, nil, now))
	return true
}

// Run samples every tick until ctx is done.
func (a *ActivityTracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			a.Sample(ctx, now)
		}
	}
}

// Reset forgets activity and the last write.
func (a *ActivityTracker) Reset() {
	a.mu.Lock()
	a.policy.Reset()
	a.lastActivity = time.Time{}
	a.mu.Unlock()
}
