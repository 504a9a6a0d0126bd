package sim

import (
	"errors"
	"sort"
	"time"

	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
)

// Scenario is a scripted sequence of detector responses replayed at a fixed
// tick period.
type Scenario struct {
	Name        string
	Description string
	Period      time.Duration
	Steps       []landmarks.Step

	// Tune adjusts the default engine configuration, may be nil.
	Tune func(*focus.Config)
}

var errGlitch = errors.New("landmark model returned malformed output")

func concat(parts ...[]landmarks.Step) []landmarks.Step {
	var out []landmarks.Step
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	forward = landmarks.Step{Face: landmarks.Forward()}
	away    = landmarks.Step{Face: landmarks.Away()}
	noFace  = landmarks.Step{}
)

var scenarios = map[string]Scenario{
	"step-away": {
		Name:        "step-away",
		Description: "Leave the desk for three ticks, then come back",
		Period:      800 * time.Millisecond,
		Steps:       concat(landmarks.Repeat(noFace, 3), landmarks.Repeat(forward, 7)),
	},
	"long-absence": {
		Name:        "long-absence",
		Description: "Stay away for a minute until the alarm escalates",
		Period:      800 * time.Millisecond,
		Steps:       landmarks.Repeat(noFace, 80),
	},
	"drifting": {
		Name:        "drifting",
		Description: "Look off to the side long enough to earn a break hint",
		Period:      800 * time.Millisecond,
		Steps:       concat(landmarks.Repeat(forward, 2), landmarks.Repeat(away, 10)),
	},
	"steady": {
		Name:        "steady",
		Description: "Focus without interruption while records are throttled",
		Period:      5 * time.Second,
		Steps:       landmarks.Repeat(forward, 10),
	},
	"glitch": {
		Name:        "glitch",
		Description: "Recover from a detector error mid-session",
		Period:      800 * time.Millisecond,
		Steps: concat(
			landmarks.Repeat(forward, 3),
			[]landmarks.Step{{Err: errGlitch}},
			landmarks.Repeat(forward, 3),
		),
	},
}

// Lookup returns a scenario by name.
func Lookup(name string) (Scenario, bool) {
	s, ok := scenarios[name]
	return s, ok
}

// Names returns every scenario name in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
