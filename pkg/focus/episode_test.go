package focus

import (
	"testing"
	"time"
)

func TestNoFaceEpisode_DelayBoundary(t *testing.T) {
	cfg := DefaultConfig()
	var e NoFaceEpisode

	if a, _ := e.Observe(true, t0, cfg); a != nil {
		t.Fatal("Expected no alert on the first no-face tick")
	}
	if a, _ := e.Observe(true, t0.Add(cfg.NoFaceDelay-time.Millisecond), cfg); a != nil {
		t.Fatal("Expected no alert before the delay")
	}
	a, _ := e.Observe(true, t0.Add(cfg.NoFaceDelay), cfg)
	if a == nil {
		t.Fatal("Expected an alert once the delay has elapsed")
	}
	if a.Count != 1 || a.Alarm {
		t.Errorf("Expected first alert without alarm, got %+v", a)
	}
}

func TestNoFaceEpisode_CooldownIsStrict(t *testing.T) {
	cfg := DefaultConfig()
	var e NoFaceEpisode

	e.Observe(true, t0, cfg)
	first := t0.Add(cfg.NoFaceDelay)
	e.Observe(true, first, cfg)

	if a, _ := e.Observe(true, first.Add(cfg.NoFaceCooldown), cfg); a != nil {
		t.Error("Expected no alert exactly at the cooldown boundary")
	}
	if a, _ := e.Observe(true, first.Add(cfg.NoFaceCooldown+time.Millisecond), cfg); a == nil {
		t.Error("Expected an alert after the cooldown")
	}
}

func TestNoFaceEpisode_Escalation(t *testing.T) {
	cfg := DefaultConfig()
	var e NoFaceEpisode

	now := t0
	var alerts []*NoFaceAlert
	for i := 0; i < 100; i++ {
		if a, _ := e.Observe(true, now, cfg); a != nil {
			alerts = append(alerts, a)
		}
		now = now.Add(cfg.TickInterval)
	}

	if len(alerts) < 3 {
		t.Fatalf("Expected at least 3 alerts over 80s, got %d", len(alerts))
	}
	for i, a := range alerts {
		if a.Count != i+1 {
			t.Errorf("alert %d: count=%d", i, a.Count)
		}
		wantAlarm := a.Count >= cfg.EscalateAfter
		if a.Alarm != wantAlarm {
			t.Errorf("alert %d: alarm=%v, want %v", i, a.Alarm, wantAlarm)
		}
	}
}

func TestNoFaceEpisode_FaceReturnEndsEpisode(t *testing.T) {
	cfg := DefaultConfig()
	var e NoFaceEpisode

	e.Observe(true, t0, cfg)
	e.Observe(true, t0.Add(1600*time.Millisecond), cfg)

	_, ended := e.Observe(false, t0.Add(2400*time.Millisecond), cfg)
	if !ended {
		t.Fatal("Expected ended=true when the face reappears")
	}
	if e.Active() || e.AlertCount != 0 {
		t.Errorf("Expected episode cleared, got %+v", e)
	}
	if e.LastAlertAt.IsZero() {
		t.Error("Expected LastAlertAt to survive the face reappearing")
	}

	if _, ended := e.Observe(false, t0.Add(3200*time.Millisecond), cfg); ended {
		t.Error("Expected ended=false when no episode was running")
	}

	// A new episode inside the cooldown stays silent.
	start := t0.Add(4 * time.Second)
	e.Observe(true, start, cfg)
	if a, _ := e.Observe(true, start.Add(cfg.NoFaceDelay), cfg); a != nil {
		t.Error("Expected the cooldown to carry across episodes")
	}

	e.Reset()
	if !e.LastAlertAt.IsZero() {
		t.Error("Expected Reset to clear LastAlertAt")
	}
}

func TestLowFocusStreak_FiresAfterRun(t *testing.T) {
	cfg := DefaultConfig()
	var s LowFocusStreak

	low := Sample{State: StateDistracted, Confidence: 0.25}
	for i := 1; i < cfg.LowFocusRunLength; i++ {
		low.Timestamp = t0.Add(time.Duration(i) * cfg.TickInterval)
		if s.Observe(low, cfg) {
			t.Fatalf("Fired after only %d ticks", i)
		}
	}
	low.Timestamp = t0.Add(time.Duration(cfg.LowFocusRunLength) * cfg.TickInterval)
	if !s.Observe(low, cfg) {
		t.Fatalf("Expected hint after %d ticks", cfg.LowFocusRunLength)
	}

	// Cooldown suppresses the next one.
	low.Timestamp = low.Timestamp.Add(cfg.TickInterval)
	if s.Observe(low, cfg) {
		t.Error("Expected cooldown to suppress the next hint")
	}
}

func TestLowFocusStreak_ThresholdInclusive(t *testing.T) {
	cfg := DefaultConfig()
	var s LowFocusStreak

	s.Observe(Sample{State: StateDistracted, Confidence: 0.40, Timestamp: t0}, cfg)
	if s.ConsecutiveLowTicks != 1 {
		t.Errorf("Expected 40%% to count as low, got %d", s.ConsecutiveLowTicks)
	}

	s.Observe(Sample{State: StateDistracted, Confidence: 0.41, Timestamp: t0}, cfg)
	if s.ConsecutiveLowTicks != 0 {
		t.Errorf("Expected 41%% to reset the streak, got %d", s.ConsecutiveLowTicks)
	}
}

func TestLowFocusStreak_ResetOnOtherStates(t *testing.T) {
	cfg := DefaultConfig()

	for _, st := range []State{StateFocused, StateNoFace, StateError} {
		s := LowFocusStreak{ConsecutiveLowTicks: 4}
		s.Observe(Sample{State: st, Confidence: 0.1, Timestamp: t0}, cfg)
		if s.ConsecutiveLowTicks != 0 {
			t.Errorf("%s: expected streak reset, got %d", st, s.ConsecutiveLowTicks)
		}
	}
}
