// Package web serves the focus dashboard: a small REST API for driving the
// engine and websockets that stream status and alerts.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/hub"
	"github.com/teslashibe/go-focus/pkg/persist"
)

// Tracker enables and disables tracking. *camera.Controller implements it.
type Tracker interface {
	Enable(ctx context.Context) error
	Disable()
	Enabled() bool
	SetVisible(v bool)
}

// StatusSource reports the machine's state. *focus.Machine implements it.
type StatusSource interface {
	Status() focus.Status
}

// Alerts is the live notification slot. *alert.Channel implements it.
type Alerts interface {
	Current() (alert.Envelope, bool)
	Clear()
}

// Audio is the alarm's unlock gate. *alarm.Engine implements it.
type Audio interface {
	Unlock(ctx context.Context) error
	IsUnlocked() bool
}

// Activity receives user presence signals. *persist.ActivityTracker
// implements it.
type Activity interface {
	Touch(now time.Time)
	SetVisible(v bool)
	SetFocused(f bool)
}

// History lists persisted records. store.Store implements it.
type History interface {
	Records(ctx context.Context, subjectID string, limit int) ([]persist.Record, error)
}

// Deps are the engine components the server drives. Audio, Activity and
// History may be nil.
type Deps struct {
	Tracker   Tracker
	Status    StatusSource
	Telemetry *focus.Telemetry
	Alerts    Alerts
	Audio     Audio
	Activity  Activity
	Camera    *camera.Manager
	History   History
	SubjectID string
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	statusHub *hub.Hub
	alertHub  *hub.Hub
}

// NewServer creates a server. staticDir, when non-empty, is served at /.
func NewServer(deps Deps, staticDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:      deps,
		logger:    logger,
		now:       time.Now,
		statusHub: hub.New("status", logger),
		alertHub:  hub.New("alerts", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Focus Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	if staticDir != "" {
		app.Static("/", staticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/telemetry", s.handleTelemetry)
	api.Post("/tracking", s.handleTracking)
	api.Post("/alert/clear", s.handleClearAlert)
	api.Post("/audio/unlock", s.handleUnlockAudio)
	api.Post("/visibility", s.handleVisibility)
	api.Post("/activity", s.handleActivity)
	api.Get("/camera", s.handleGetCamera)
	api.Patch("/camera", s.handlePatchCamera)
	api.Get("/records", s.handleRecords)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/alerts", websocket.New(s.serveHub(s.alertHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// RunHubs runs the broadcast hubs until ctx is done.
func (s *Server) RunHubs(ctx context.Context) {
	go s.statusHub.Run(ctx)
	go s.alertHub.Run(ctx)
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("dashboard listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishTick streams one tick result to status clients.
func (s *Server) PublishTick(res focus.Result) {
	if err := s.statusHub.Publish("tick", res); err != nil {
		s.logger.Warn("publish tick failed", "error", err)
	}
}

// PublishTelemetry streams a telemetry change to status clients.
func (s *Server) PublishTelemetry(snap focus.Snapshot) {
	if err := s.statusHub.Publish("telemetry", snap); err != nil {
		s.logger.Warn("publish telemetry failed", "error", err)
	}
}

// PublishAlert streams the alert slot to alert clients. An emptied slot is
// sent as a "clear" event.
func (s *Server) PublishAlert(env alert.Envelope, live bool) {
	var err error
	if live {
		err = s.alertHub.Publish("alert", env)
	} else {
		err = s.alertHub.Publish("clear", fiber.Map{"id": env.ID})
	}
	if err != nil {
		s.logger.Warn("publish alert failed", "error", err)
	}
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		hub.NewClient(h, conn).Run()
	}
}
