package camera

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-focus/pkg/focus"
)

// Stopper silences an alarm.
type Stopper interface {
	Stop()
}

// Clearer empties an alert slot.
type Clearer interface {
	Clear()
}

// Resetter forgets transient write state.
type Resetter interface {
	Reset()
}

// Controller owns enable/disable of tracking. While enabled it reads a frame
// every tick and feeds it to the focus machine. Disabling tears everything
// down synchronously so the next Enable starts from a clean slate.
type Controller struct {
	machine  *focus.Machine
	device   Device
	manager  *Manager
	alarm    Stopper
	alerts   Clearer
	recorder Resetter
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration

	// OnTick receives every tick result, including skipped ticks.
	OnTick func(focus.Result)

	// OnStateChange is called after Enable and Disable.
	OnStateChange func(enabled bool)

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}

	visible atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithAlarm sets the alarm silenced on disable.
func WithAlarm(a Stopper) Option {
	return func(c *Controller) { c.alarm = a }
}

// WithAlerts sets the alert slot cleared on disable.
func WithAlerts(a Clearer) Option {
	return func(c *Controller) { c.alerts = a }
}

// WithRecorder sets the write policy reset on enable and disable.
func WithRecorder(r Resetter) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a disabled controller. The tick interval comes from
// the machine's configuration.
func NewController(machine *focus.Machine, device Device, manager *Manager, opts ...Option) *Controller {
	c := &Controller{
		machine:  machine,
		device:   device,
		manager:  manager,
		logger:   slog.Default(),
		now:      time.Now,
		interval: machine.Config().TickInterval,
	}
	c.visible.Store(true)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enable acquires the device and starts the tick loop. If acquisition fails
// the machine is left in no_permission or error and the error is returned.
// Enabling an enabled controller is a no-op.
func (c *Controller) Enable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runningLocked() {
		return nil
	}
	if c.enabled {
		// The loop stopped on its own after access was revoked.
		c.disableLocked()
	}
	if err := c.enableLocked(ctx); err != nil {
		return err
	}
	c.notify(true)
	return nil
}

func (c *Controller) enableLocked(ctx context.Context) error {
	c.resetLocked()
	c.machine.Telemetry().Loading(c.now())

	cfg := c.manager.GetConfig()
	if err := c.device.Open(ctx, cfg); err != nil {
		state := focus.StateError
		if errors.Is(err, ErrPermissionDenied) {
			state = focus.StateNoPermission
		}
		c.machine.Fail(state, err.Error(), c.now())
		c.device.Close()
		c.logger.Warn("camera unavailable", "state", state, "error", err)
		return err
	}

	c.machine.Start(c.now())

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.enabled = true
	go c.loop(loopCtx, c.done)

	c.logger.Info("tracking enabled",
		"device", cfg.DeviceID, "width", cfg.Width, "height", cfg.Height,
		"interval", c.interval)
	return nil
}

// Disable stops the tick loop and waits for it to exit, releases the device,
// silences the alarm, clears the alert and resets all transient state.
// It is safe to call repeatedly.
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasEnabled := c.enabled
	c.disableLocked()
	if wasEnabled {
		c.logger.Info("tracking disabled")
		c.notify(false)
	}
}

func (c *Controller) disableLocked() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel, c.done = nil, nil
	}
	c.device.Close()
	c.enabled = false

	if c.alarm != nil {
		c.alarm.Stop()
	}
	if c.alerts != nil {
		c.alerts.Clear()
	}
	c.resetLocked()
	c.machine.Telemetry().Off(c.now())
}

func (c *Controller) resetLocked() {
	c.machine.Reset()
	if c.recorder != nil {
		c.recorder.Reset()
	}
}

// Reacquire re-opens the device with the manager's current configuration
// when tracking is enabled. It is wired to Manager.OnConfigChange.
func (c *Controller) Reacquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil
	}
	c.disableLocked()
	if err := c.enableLocked(ctx); err != nil {
		c.notify(false)
		return err
	}
	return nil
}

// Enabled reports whether the tick loop is running.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

func (c *Controller) runningLocked() bool {
	if !c.enabled || c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// SetVisible gates ticks on page/window visibility.
func (c *Controller) SetVisible(v bool) {
	c.visible.Store(v)
}

// Visible reports the current visibility gate.
func (c *Controller) Visible() bool {
	return c.visible.Load()
}

func (c *Controller) notify(enabled bool) {
	if c.OnStateChange != nil {
		c.OnStateChange(enabled)
	}
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one cycle. It returns false when the loop must stop.
func (c *Controller) tick(ctx context.Context) bool {
	now := c.now()

	if !c.visible.Load() {
		c.emit(c.machine.Tick(ctx, focus.Input{Visible: false, Width: 1, Height: 1, Now: now}))
		return true
	}

	frame, err := c.device.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, ErrPermissionDenied) {
			c.machine.Fail(focus.StateNoPermission, err.Error(), now)
			c.device.Close()
			c.logger.Warn("camera access revoked, stopping", "error", err)
			return false
		}
		c.machine.Fail(focus.StateError, err.Error(), now)
		c.logger.Debug("frame read failed", "error", err)
		return true
	}

	c.emit(c.machine.Tick(ctx, focus.Input{
		JPEG:    frame.JPEG,
		Width:   frame.Width,
		Height:  frame.Height,
		Visible: true,
		Now:     now,
	}))
	return true
}

func (c *Controller) emit(res focus.Result) {
	if c.OnTick != nil {
		c.OnTick(res)
	}
}
