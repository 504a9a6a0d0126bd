package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-focus/pkg/alert"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/focus"
	"github.com/teslashibe/go-focus/pkg/persist"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Tracking      bool            `json:"tracking"`
	Visible       bool            `json:"visible"`
	AudioUnlocked bool            `json:"audio_unlocked"`
	Focus         focus.Status    `json:"focus"`
	Alert         *alert.Envelope `json:"alert,omitempty"`
}

type trackingRequest struct {
	Enabled bool `json:"enabled"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type activityRequest struct {
	WindowFocused *bool `json:"window_focused"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Tracking: s.deps.Tracker.Enabled(),
		Focus:    s.deps.Status.Status(),
	}
	if v, ok := s.deps.Tracker.(interface{ Visible() bool }); ok {
		resp.Visible = v.Visible()
	}
	if s.deps.Audio != nil {
		resp.AudioUnlocked = s.deps.Audio.IsUnlocked()
	}
	if env, ok := s.deps.Alerts.Current(); ok {
		resp.Alert = &env
	}
	return c.JSON(resp)
}

func (s *Server) handleTelemetry(c *fiber.Ctx) error {
	return c.JSON(s.deps.Telemetry.View(s.now()))
}

func (s *Server) handleTracking(c *fiber.Ctx) error {
	var req trackingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if !req.Enabled {
		s.deps.Tracker.Disable()
		return c.JSON(fiber.Map{"tracking": false})
	}

	if err := s.deps.Tracker.Enable(c.UserContext()); err != nil {
		status := fiber.StatusServiceUnavailable
		if errors.Is(err, camera.ErrPermissionDenied) {
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{
			"tracking": false,
			"error":    err.Error(),
		})
	}
	return c.JSON(fiber.Map{"tracking": true})
}

func (s *Server) handleClearAlert(c *fiber.Ctx) error {
	s.deps.Alerts.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

// handleUnlockAudio must be triggered by a user gesture in the browser.
func (s *Server) handleUnlockAudio(c *fiber.Ctx) error {
	if s.deps.Audio == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "audio not configured"})
	}
	if err := s.deps.Audio.Unlock(c.UserContext()); err != nil {
		s.logger.Warn("audio unlock failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"unlocked": false,
			"error":    err.Error(),
		})
	}
	return c.JSON(fiber.Map{"unlocked": true})
}

func (s *Server) handleVisibility(c *fiber.Ctx) error {
	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	s.deps.Tracker.SetVisible(req.Visible)
	if s.deps.Activity != nil {
		s.deps.Activity.SetVisible(req.Visible)
	}
	return c.JSON(fiber.Map{"visible": req.Visible})
}

func (s *Server) handleActivity(c *fiber.Ctx) error {
	if s.deps.Activity == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	var req activityRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	if req.WindowFocused != nil {
		s.deps.Activity.SetFocused(*req.WindowFocused)
	}
	s.deps.Activity.Touch(s.now())
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"config":  s.deps.Camera.GetConfig(),
		"presets": camera.PresetNames(),
	})
}

func (s *Server) handlePatchCamera(c *fiber.Ctx) error {
	var params map[string]any
	if err := c.BodyParser(&params); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.deps.Camera.UpdateConfig(params); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(s.deps.Camera.GetConfig())
}

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

func (s *Server) handleRecords(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "history not configured"})
	}

	limit := c.QueryInt("limit", defaultRecordLimit)
	if limit <= 0 || limit > maxRecordLimit {
		return badRequest(c, "limit must be between 1 and 500")
	}

	records, err := s.deps.History.Records(c.UserContext(), s.deps.SubjectID, limit)
	if err != nil {
		s.logger.Error("list records failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load records"})
	}
	if records == nil {
		records = []persist.Record{}
	}
	return c.JSON(records)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
