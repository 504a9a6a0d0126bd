package focus

import "time"

// NoFaceEpisode tracks a contiguous run of no-face ticks and its alerts.
// lastAlertAt deliberately survives a face reappearing so the cooldown also
// throttles alerts across short episodes; only Reset clears it.
type NoFaceEpisode struct {
	Since       time.Time `json:"since"` // zero when no episode is running
	LastAlertAt time.Time `json:"last_alert_at"`
	AlertCount  int       `json:"alert_count"`
}

// Active reports whether a no-face run is in progress.
func (e *NoFaceEpisode) Active() bool {
	return !e.Since.IsZero()
}

// NoFaceAlert is the decision emitted by NoFaceEpisode.Observe.
type NoFaceAlert struct {
	Count int
	Alarm bool
}

// Observe advances the episode by one tick. It returns a non-nil alert when
// one should be emitted, and ended=true on the tick a face reappears.
func (e *NoFaceEpisode) Observe(noFace bool, now time.Time, cfg Config) (alert *NoFaceAlert, ended bool) {
	if !noFace {
		ended = e.Active()
		e.Since = time.Time{}
		e.AlertCount = 0
		return nil, ended
	}

	if !e.Active() {
		e.Since = now
	}

	if now.Sub(e.Since) < cfg.NoFaceDelay {
		return nil, false
	}
	if !e.LastAlertAt.IsZero() && now.Sub(e.LastAlertAt) <= cfg.NoFaceCooldown {
		return nil, false
	}

	e.AlertCount++
	e.LastAlertAt = now
	return &NoFaceAlert{Count: e.AlertCount, Alarm: e.AlertCount >= cfg.EscalateAfter}, false
}

// Reset empties the episode completely.
func (e *NoFaceEpisode) Reset() {
	*e = NoFaceEpisode{}
}

// LowFocusStreak counts consecutive low-confidence distracted ticks.
type LowFocusStreak struct {
	ConsecutiveLowTicks int       `json:"consecutive_low_ticks"`
	LastHintAt          time.Time `json:"last_hint_at"`
}

// Observe advances the streak by one tick and reports whether a break hint
// should fire. Any tick that is not a low-confidence distracted tick breaks
// the streak.
func (s *LowFocusStreak) Observe(sample Sample, cfg Config) (fire bool) {
	if sample.State != StateDistracted || sample.Percent() > cfg.LowFocusThreshold {
		s.ConsecutiveLowTicks = 0
		return false
	}

	s.ConsecutiveLowTicks++
	if s.ConsecutiveLowTicks < cfg.LowFocusRunLength {
		return false
	}
	if !s.LastHintAt.IsZero() && sample.Timestamp.Sub(s.LastHintAt) <= cfg.BreakHintCooldown {
		return false
	}

	s.LastHintAt = sample.Timestamp
	return true
}

// Reset empties the streak completely.
func (s *LowFocusStreak) Reset() {
	*s = LowFocusStreak{}
}
