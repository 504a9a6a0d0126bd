package focus

import (
	"testing"
	"time"
)

func TestTelemetry_StartsOff(t *testing.T) {
	tel := NewTelemetry(0)

	v := tel.View(t0)
	if v.State != TelemetryOff || v.Enabled || v.Stale {
		t.Errorf("Expected off, disabled, fresh; got %+v", v)
	}
}

func TestTelemetry_UpdatedAtMonotonic(t *testing.T) {
	tel := NewTelemetry(DefaultStaleAfter)

	tel.Update(TelemetryFocused, 0.9, t0)
	tel.Update(TelemetryDistracted, 0.3, t0.Add(-time.Second))

	snap := tel.Snapshot()
	if snap.UpdatedAt.Before(t0) {
		t.Errorf("UpdatedAt moved backwards to %v", snap.UpdatedAt)
	}
	if snap.State != TelemetryDistracted {
		t.Errorf("Expected latest state to win, got %s", snap.State)
	}
}

func TestTelemetry_ConfidenceClamped(t *testing.T) {
	tel := NewTelemetry(DefaultStaleAfter)

	tel.Update(TelemetryFocused, 1.7, t0)
	if c := tel.Snapshot().Confidence; c != 1 {
		t.Errorf("Expected confidence clamped to 1, got %v", c)
	}
}

func TestTelemetry_Stale(t *testing.T) {
	tel := NewTelemetry(DefaultStaleAfter)
	tel.Update(TelemetryFocused, 0.9, t0)

	if tel.View(t0.Add(DefaultStaleAfter)).Stale {
		t.Error("Expected fresh at exactly StaleAfter")
	}
	if !tel.View(t0.Add(DefaultStaleAfter + time.Millisecond)).Stale {
		t.Error("Expected stale after StaleAfter")
	}

	tel.Off(t0.Add(time.Minute))
	if tel.View(t0.Add(time.Hour)).Stale {
		t.Error("Disabled telemetry must never be stale")
	}
}

func TestTelemetry_LoadingAndOff(t *testing.T) {
	tel := NewTelemetry(DefaultStaleAfter)

	var got []TelemetryState
	tel.Subscribe(func(s Snapshot) { got = append(got, s.State) })

	tel.Loading(t0)
	tel.Update(TelemetryNoFace, 0.2, t0.Add(time.Second))
	tel.Off(t0.Add(2 * time.Second))

	want := []TelemetryState{TelemetryLoading, TelemetryNoFace, TelemetryOff}
	if len(got) != len(want) {
		t.Fatalf("Expected %d notifications, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if tel.View(t0.Add(2 * time.Second)).Enabled {
		t.Error("Expected disabled after Off")
	}
}
