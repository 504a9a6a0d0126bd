package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
)

type fakeAlarm struct{ stops atomic.Int32 }

func (a *fakeAlarm) Stop() { a.stops.Add(1) }

type fakeAlerts struct{ clears atomic.Int32 }

func (a *fakeAlerts) Clear() { a.clears.Add(1) }

type fakeRecorder struct{ resets atomic.Int32 }

func (r *fakeRecorder) Reset() { r.resets.Add(1) }

type rig struct {
	ctrl     *Controller
	machine  *focus.Machine
	device   *MockDevice
	provider *landmarks.Scripted
	manager  *Manager
	alarm    *fakeAlarm
	alerts   *fakeAlerts
	recorder *fakeRecorder

	mu      sync.Mutex
	results []focus.Result
}

func newRig(t *testing.T, steps ...landmarks.Step) *rig {
	t.Helper()

	cfg := focus.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond

	r := &rig{
		device:   NewMockDevice(),
		provider: landmarks.NewScripted(steps...),
		manager:  NewManager(DefaultConfig()),
		alarm:    &fakeAlarm{},
		alerts:   &fakeAlerts{},
		recorder: &fakeRecorder{},
	}
	r.machine = focus.NewMachine(cfg, r.provider, focus.NewTelemetry(cfg.StaleAfter))
	r.ctrl = NewController(r.machine, r.device, r.manager,
		WithAlarm(r.alarm), WithAlerts(r.alerts), WithRecorder(r.recorder))
	r.ctrl.OnTick = func(res focus.Result) {
		r.mu.Lock()
		r.results = append(r.results, res)
		r.mu.Unlock()
	}
	t.Cleanup(r.ctrl.Disable)
	return r
}

func (r *rig) tickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *rig) last() focus.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[len(r.results)-1]
}

func TestController_EnableRunsLoop(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})

	require.NoError(t, r.ctrl.Enable(context.Background()))
	assert.True(t, r.ctrl.Enabled())
	assert.True(t, r.device.IsOpen())

	require.Eventually(t, func() bool { return r.tickCount() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, focus.StateFocused, r.last().Sample.State)
	assert.Equal(t, focus.TelemetryFocused, r.machine.Telemetry().Snapshot().State)

	// Enable while enabled is a no-op.
	require.NoError(t, r.ctrl.Enable(context.Background()))
	opens, _, _ := r.device.Counts()
	assert.Equal(t, 1, opens)
}

func TestController_EnablePermissionDenied(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.device.FailOpen(&DeviceError{Op: "open", Permission: true, Err: errors.New("user denied")})

	err := r.ctrl.Enable(context.Background())
	require.ErrorIs(t, err, ErrPermissionDenied)

	assert.False(t, r.ctrl.Enabled())
	assert.Equal(t, focus.StateNoPermission, r.machine.State())
	assert.Contains(t, r.machine.Status().Reason, "permission denied")
	assert.Equal(t, focus.TelemetryError, r.machine.Telemetry().Snapshot().State)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.tickCount(), "failed acquisition must not start the loop")
	assert.Zero(t, r.provider.Calls())
}

func TestController_EnableDeviceError(t *testing.T) {
	r := newRig(t)
	r.device.FailOpen(&DeviceError{Op: "open", Err: errors.New("no such device")})

	require.Error(t, r.ctrl.Enable(context.Background()))
	assert.Equal(t, focus.StateError, r.machine.State())

	// A later Enable retries from scratch.
	r.device.FailOpen(nil)
	require.NoError(t, r.ctrl.Enable(context.Background()))
	require.Eventually(t, func() bool { return r.tickCount() > 0 }, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, focus.StateError, r.machine.State())
}

func TestController_DisableTearsDownSynchronously(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	require.NoError(t, r.ctrl.Enable(context.Background()))
	require.Eventually(t, func() bool { return r.tickCount() >= 2 }, time.Second, 5*time.Millisecond)

	r.ctrl.Disable()

	n := r.tickCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, r.tickCount(), "no tick may run after Disable returns")

	assert.False(t, r.ctrl.Enabled())
	assert.False(t, r.device.IsOpen())
	assert.EqualValues(t, 1, r.alarm.stops.Load())
	assert.EqualValues(t, 1, r.alerts.clears.Load())
	assert.EqualValues(t, 2, r.recorder.resets.Load(), "reset on enable and on disable")
	assert.Equal(t, focus.StateLoading, r.machine.State())

	view := r.machine.Telemetry().View(time.Now())
	assert.Equal(t, focus.TelemetryOff, view.State)
	assert.False(t, view.Enabled)

	// Idempotent.
	r.ctrl.Disable()
	assert.False(t, r.ctrl.Enabled())
}

func TestController_ReenableStartsClean(t *testing.T) {
	r := newRig(t, landmarks.Step{})
	require.NoError(t, r.ctrl.Enable(context.Background()))
	require.Eventually(t, func() bool {
		st := r.machine.Status()
		return st.Episode.Active()
	}, time.Second, 5*time.Millisecond)

	r.ctrl.Disable()
	st := r.machine.Status()
	assert.False(t, st.Episode.Active())
	assert.True(t, st.Episode.LastAlertAt.IsZero())

	r.provider.Append(landmarks.Step{Face: landmarks.Forward()})
	require.NoError(t, r.ctrl.Enable(context.Background()))
	assert.True(t, r.ctrl.Enabled())
}

func TestController_HiddenSkipsCapture(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.ctrl.SetVisible(false)
	require.NoError(t, r.ctrl.Enable(context.Background()))

	require.Eventually(t, func() bool { return r.tickCount() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, focus.SkipHidden, r.last().Skipped)
	_, _, reads := r.device.Counts()
	assert.Zero(t, reads)
	assert.Zero(t, r.provider.Calls())

	r.ctrl.SetVisible(true)
	require.Eventually(t, func() bool { return r.provider.Calls() > 0 }, time.Second, 5*time.Millisecond)
}

func TestController_ReadErrorKeepsLooping(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.device.QueueReadError(&DeviceError{Op: "read", Err: errors.New("timeout")})
	require.NoError(t, r.ctrl.Enable(context.Background()))

	require.Eventually(t, func() bool {
		return r.tickCount() >= 2 && r.last().Sample.State == focus.StateFocused
	}, time.Second, 5*time.Millisecond)
	assert.True(t, r.ctrl.Enabled())
}

func TestController_PermissionRevokedStopsLoop(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.device.QueueReadError(&DeviceError{Op: "read", Permission: true, Err: errors.New("revoked")})
	require.NoError(t, r.ctrl.Enable(context.Background()))

	require.Eventually(t, func() bool { return r.machine.State() == focus.StateNoPermission },
		time.Second, 5*time.Millisecond)

	_, _, reads := r.device.Counts()
	time.Sleep(50 * time.Millisecond)
	_, _, after := r.device.Counts()
	assert.Equal(t, reads, after, "loop stops after access is revoked")
	assert.Zero(t, r.provider.Calls())
}

func TestController_ReenableAfterRevoke(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.device.QueueReadError(&DeviceError{Op: "read", Permission: true, Err: errors.New("revoked")})
	require.NoError(t, r.ctrl.Enable(context.Background()))

	require.Eventually(t, func() bool { return !r.ctrl.Enabled() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, focus.StateNoPermission, r.machine.State())
	assert.False(t, r.device.IsOpen(), "revoked device is released")

	require.NoError(t, r.ctrl.Enable(context.Background()))
	assert.True(t, r.ctrl.Enabled())
	opens, _, _ := r.device.Counts()
	assert.Equal(t, 2, opens)

	require.Eventually(t, func() bool { return r.machine.State() == focus.StateFocused },
		time.Second, 5*time.Millisecond)
	assert.Positive(t, r.tickCount())
}

func TestController_ReacquireOnConfigChange(t *testing.T) {
	r := newRig(t, landmarks.Step{Face: landmarks.Forward()})
	r.manager.OnConfigChange = func(Config) error { return r.ctrl.Reacquire(context.Background()) }

	// Not enabled: nothing to re-acquire.
	require.NoError(t, r.manager.SetConfig(LowConfig()))
	opens, _, _ := r.device.Counts()
	assert.Zero(t, opens)

	require.NoError(t, r.ctrl.Enable(context.Background()))
	require.NoError(t, r.manager.SetConfig(HD720Config()))

	opens, closes, _ := r.device.Counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, closes)
	assert.True(t, r.ctrl.Enabled())

	assert.Equal(t, 1280, r.device.LastConfig().Width)
	require.Eventually(t, func() bool { return r.tickCount() > 0 }, time.Second, 5*time.Millisecond)
}
