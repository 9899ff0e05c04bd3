package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/hub"
)

// handleStatus returns the tracker's observable state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Snapshot())
}

// handleStartTracking runs the full initialization sequence. The
// response carries the resulting state either way; a denied camera
// maps to 403 so callers can distinguish it from internal failures.
func (s *Server) handleStartTracking(c *fiber.Ctx) error {
	if err := s.tracker.Start(context.Background()); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, camera.ErrPermissionDenied) {
			status = fiber.StatusForbidden
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
			"state": s.tracker.Snapshot(),
		})
	}
	return c.JSON(s.tracker.Snapshot())
}

// handleStopTracking tears the session down.
func (s *Server) handleStopTracking(c *fiber.Ctx) error {
	s.tracker.Stop()
	return c.JSON(s.tracker.Snapshot())
}

// handleGetCamera returns the stored camera configuration.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.cameras.GetConfig())
}

// handleUpdateCamera applies a partial configuration update. Changes
// take effect on the next tracking session.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var update map[string]interface{}
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.cameras.UpdateConfig(update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.cameras.GetConfig())
}

// handleGazeWS streams gaze samples. The latest state is sent on
// connect so consumers render immediately.
func (s *Server) handleGazeWS(c *websocket.Conn) {
	if sample := s.tracker.LastSample(); sample != nil {
		if msg, err := hub.NewEventMessage("GazeUpdated", sample); err == nil {
			c.WriteMessage(websocket.TextMessage, msg.Data)
		}
	}
	hub.NewClient(s.gazeHub, c).Run()
}

// handlePreviewWS streams JPEG preview frames as binary messages.
func (s *Server) handlePreviewWS(c *websocket.Conn) {
	hub.NewClient(s.previewHub, c).Run()
}
