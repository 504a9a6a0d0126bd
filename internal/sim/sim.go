// Package sim replays scripted gaze scenarios through the focus engine on a
// virtual clock. Nothing sleeps: a minute of ticks runs in microseconds.
package sim

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
	"github.com/teslashibe/go-focus/pkg/persist"
)

// Epoch is the virtual time of tick 0.
var Epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// Tick is what happened on one simulated tick.
type Tick struct {
	Index      int            `json:"index"`
	Elapsed    time.Duration  `json:"elapsed"`
	State      focus.State    `json:"state"`
	Percent    int            `json:"percent"`
	Alert      string         `json:"alert,omitempty"`
	Escalation int            `json:"escalation,omitempty"`
	Alarm      bool           `json:"alarm"`
	BreakHint  bool           `json:"break_hint"`
	Recorded   bool           `json:"recorded"`
	Error      string         `json:"error,omitempty"`
	Telemetry  focus.Snapshot `json:"telemetry"`
}

// Report summarizes one scenario run.
type Report struct {
	Scenario string           `json:"scenario"`
	Ticks    []Tick           `json:"ticks"`
	Alerts   int              `json:"alerts"`
	Writes   []persist.Record `json:"writes"`
}

// AlertTicks returns the indices of ticks that pushed an alert.
func (r Report) AlertTicks() []int {
	var idx []int
	for _, t := range r.Ticks {
		if t.Alert != "" {
			idx = append(idx, t.Index)
		}
	}
	return idx
}

// WriteTicks returns the indices of ticks that submitted a record.
func (r Report) WriteTicks() []int {
	var idx []int
	for _, t := range r.Ticks {
		if t.Recorded {
			idx = append(idx, t.Index)
		}
	}
	return idx
}

// memorySink collects records in insertion order.
type memorySink struct {
	mu      sync.Mutex
	records []persist.Record
}

func (m *memorySink) Insert(ctx context.Context, r persist.Record) error {
	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
	return nil
}

func (m *memorySink) ResolveArea(ctx context.Context, subjectID string) (string, error) {
	return "sim-" + subjectID, nil
}

// alarmProbe stands in for the audio engine and remembers whether it is
// looping.
type alarmProbe struct {
	mu      sync.Mutex
	looping bool
}

func (a *alarmProbe) StartLoop() { a.set(true) }
func (a *alarmProbe) Stop()      { a.set(false) }

func (a *alarmProbe) set(v bool) {
	a.mu.Lock()
	a.looping = v
	a.mu.Unlock()
}

func (a *alarmProbe) Looping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.looping
}

// Run replays s through a fresh engine.
func Run(ctx context.Context, s Scenario, logger *slog.Logger) Report {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := focus.DefaultConfig()
	cfg.TickInterval = s.Period
	if s.Tune != nil {
		s.Tune(&cfg)
	}

	sink := &memorySink{}
	pcfg := persist.DefaultConfig()
	pcfg.SubjectID = "sim"
	throttler := persist.NewThrottler(pcfg, sink, persist.NewAreaCache(sink), logger)

	channel := alert.NewChannel(logger)
	probe := &alarmProbe{}
	unbind := alert.BindAlarm(channel, probe)
	defer unbind()
	defer channel.Clear()

	machine := focus.NewMachine(cfg, landmarks.NewScripted(s.Steps...), nil,
		focus.WithNotifier(channel),
		focus.WithRecorder(throttler),
		focus.WithLogger(logger),
	)
	machine.Telemetry().Loading(Epoch)
	machine.Start(Epoch)

	report := Report{Scenario: s.Name}
	for i := range s.Steps {
		if ctx.Err() != nil {
			break
		}
		now := Epoch.Add(time.Duration(i) * s.Period)

		// A detector error parks the machine in the error state; the
		// lifecycle controller would keep ticking, and so does the sim.
		res := machine.Tick(ctx, focus.Input{Width: 640, Height: 480, Visible: true, Now: now})
		throttler.Wait()

		t := Tick{
			Index:     i,
			Elapsed:   now.Sub(Epoch),
			State:     res.Sample.State,
			Percent:   res.Sample.Percent(),
			BreakHint: res.BreakHint,
			Recorded:  res.Recorded,
			Alarm:     probe.Looping(),
			Telemetry: machine.Telemetry().Snapshot(),
		}
		if res.Err != nil {
			t.Error = res.Err.Error()
		}
		if res.Alert != nil {
			t.Alert = res.Alert.Message
			t.Escalation = res.Alert.Escalation
			report.Alerts++
		}
		report.Ticks = append(report.Ticks, t)
	}

	sink.mu.Lock()
	report.Writes = append([]persist.Record(nil), sink.records...)
	sink.mu.Unlock()
	return report
}
