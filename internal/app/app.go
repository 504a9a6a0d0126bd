// Package app wires the focus engine, its storage and its outer surfaces into
// one long-running daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-focus/internal/config"
	"github.com/teslashibe/go-focus/pkg/alarm"
	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/audioio"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/camera/webcam"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/landmarks"
	"github.com/teslashibe/go-focus/pkg/persist"
	"github.com/teslashibe/go-focus/pkg/store"
	"github.com/teslashibe/go-focus/pkg/telemetry"
	"github.com/teslashibe/go-focus/pkg/web"
)

// App owns every long-lived component of focusd.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	// Device and provider are replaceable before Init, mainly for tests.
	Device   camera.Device
	Provider landmarks.Provider

	store     store.Store
	areas     *persist.AreaCache
	throttler *persist.Throttler
	activity  *persist.ActivityTracker

	channel     *alert.Channel
	alarm       *alarm.Engine
	unbindAlarm func()

	telemetry  *focus.Telemetry
	machine    *focus.Machine
	manager    *camera.Manager
	controller *camera.Controller

	server *web.Server
	mqtt   *telemetry.Publisher

	wg sync.WaitGroup
}

// New creates an app for a validated configuration.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// Init opens storage and builds the engine. Call it once before Run.
func (a *App) Init(ctx context.Context) error {
	if err := a.initStore(ctx); err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	if err := a.initAudio(); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	a.initEngine()
	a.initSurfaces()
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Store {
	case config.StorePostgres:
		if a.cfg.Migrate {
			if err := store.Migrate(ctx, a.cfg.DatabaseURL); err != nil {
				return err
			}
			a.logger.Info("database migrations applied")
		}
		pg, err := store.OpenPostgres(ctx, a.cfg.DatabaseURL, a.logger.With("component", "store"))
		if err != nil {
			return err
		}
		a.store = pg
	default:
		js, err := store.OpenJSONL(a.cfg.DataDir)
		if err != nil {
			return err
		}
		a.store = js
		a.logger.Info("recording to files", "dir", a.cfg.DataDir)
	}

	a.areas = persist.NewAreaCache(a.store)
	persistLog := a.logger.With("component", "persist")
	a.throttler = persist.NewThrottler(a.cfg.Persist, a.store, a.areas, persistLog)
	a.activity = persist.NewActivityTracker(a.cfg.Persist, a.store, a.areas, persistLog)
	return nil
}

func (a *App) initAudio() error {
	a.channel = alert.NewChannel(a.logger.With("component", "alert"))

	audioLog := a.logger.With("component", "audio")
	sink, err := audioio.NewSink(a.cfg.Audio, audioLog)
	if err != nil {
		return err
	}
	a.alarm = alarm.New(a.cfg.Alarm, sink, audioLog)
	a.unbindAlarm = alert.BindAlarm(a.channel, a.alarm)
	return nil
}

func (a *App) initEngine() {
	if a.Provider == nil {
		a.Provider = landmarks.NewRemote(a.cfg.Landmarks, a.logger.With("component", "landmarks"))
	}
	if a.Device == nil {
		a.Device = webcam.New()
	}

	a.telemetry = focus.NewTelemetry(a.cfg.Tracking.StaleAfter)

	opts := []focus.MachineOption{
		focus.WithNotifier(a.channel),
		focus.WithLogger(a.logger.With("component", "focus")),
	}
	var resetter camera.Resetter = a.activity
	if a.cfg.Record == config.RecordGaze {
		opts = append(opts, focus.WithRecorder(a.throttler))
		resetter = a.throttler
	}
	a.machine = focus.NewMachine(a.cfg.Tracking, a.Provider, a.telemetry, opts...)

	a.manager = camera.NewManager(a.cfg.Camera)
	a.controller = camera.NewController(a.machine, a.Device, a.manager,
		camera.WithAlarm(a.alarm),
		camera.WithAlerts(a.channel),
		camera.WithRecorder(resetter),
		camera.WithLogger(a.logger.With("component", "camera")),
	)
	a.manager.OnConfigChange = func(camera.Config) error {
		return a.controller.Reacquire(context.Background())
	}
}

func (a *App) initSurfaces() {
	deps := web.Deps{
		Tracker:   a.controller,
		Status:    a.machine,
		Telemetry: a.telemetry,
		Alerts:    a.channel,
		Audio:     a.alarm,
		Camera:    a.manager,
		History:   a.store,
		SubjectID: a.cfg.Persist.SubjectID,
	}
	if a.cfg.Record == config.RecordActivity {
		deps.Activity = a.activity
	}
	a.server = web.NewServer(deps, a.cfg.StaticDir, a.logger.With("component", "web"))
	a.mqtt = telemetry.New(a.cfg.MQTT, a.logger)

	a.controller.OnTick = a.server.PublishTick
	a.telemetry.Subscribe(func(snap focus.Snapshot) {
		a.server.PublishTelemetry(snap)
		a.mqtt.PublishTelemetry(snap)
	})
	a.channel.Subscribe(func(env alert.Envelope, live bool) {
		a.server.PublishAlert(env, live)
		a.mqtt.PublishAlert(env, live)
	})
}

// Run starts background work and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.server.RunHubs(ctx)

	if a.mqtt.Enabled() {
		if err := a.mqtt.Connect(); err != nil {
			a.logger.Warn("mqtt unavailable, retrying in background", "error", err)
		}
		a.goRun(func() { a.mqtt.Run(ctx) })
	}

	if a.cfg.Record == config.RecordActivity {
		a.goRun(func() {
			if err := a.activity.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("activity tracker stopped", "error", err)
			}
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Listen(a.cfg.HTTPAddr)
	}()

	if a.cfg.AutoStart {
		if err := a.controller.Enable(ctx); err != nil {
			a.logger.Warn("tracking not started", "error", err)
		}
	}

	a.logger.Info("focusd running", "addr", a.cfg.HTTPAddr, "record", a.cfg.Record, "store", a.cfg.Store)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("dashboard: %w", err)
	}
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Shutdown stops tracking, drains pending writes and releases resources.
// The context passed to Run must already be cancelled.
func (a *App) Shutdown() {
	if a.controller != nil {
		a.controller.Disable()
	}
	if a.unbindAlarm != nil {
		a.unbindAlarm()
	}
	if a.alarm != nil {
		if err := a.alarm.Close(); err != nil {
			a.logger.Warn("alarm close failed", "error", err)
		}
	}
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.logger.Warn("dashboard shutdown failed", "error", err)
		}
	}
	a.wg.Wait()

	if a.throttler != nil {
		a.throttler.Wait()
	}
	if a.activity != nil {
		a.activity.Wait()
	}
	if closer, ok := a.Provider.(interface{ Close() error }); ok {
		closer.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", "error", err)
		}
	}
	a.logger.Info("focusd stopped")
}

// Controller exposes the lifecycle controller.
func (a *App) Controller() *camera.Controller {
	return a.controller
}

// Server exposes the dashboard server.
func (a *App) Server() *web.Server {
	return a.server
}
