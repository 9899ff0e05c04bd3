// Package web exposes the tracking subsystem over HTTP and websockets:
// lifecycle control, camera configuration, a live gaze sample feed and
// an optional JPEG preview feed.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/Exiv-ai/exiv-gaze/internal/log"
	"github.com/Exiv-ai/exiv-gaze/pkg/camera"
	"github.com/Exiv-ai/exiv-gaze/pkg/gaze"
	"github.com/Exiv-ai/exiv-gaze/pkg/hub"
)

// Server serves the tracking API.
type Server struct {
	app  *fiber.App
	port string

	tracker *gaze.Tracker
	cameras *camera.Manager

	gazeHub    *hub.Hub
	previewHub *hub.Hub
}

// NewServer wires the API around a tracker and camera manager.
func NewServer(port string, tracker *gaze.Tracker, cameras *camera.Manager) *Server {
	s := &Server{
		port:       port,
		tracker:    tracker,
		cameras:    cameras,
		gazeHub:    hub.New("gaze"),
		previewHub: hub.New("preview"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "exiv-gaze",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/tracking/start", s.handleStartTracking)
	api.Post("/tracking/stop", s.handleStopTracking)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/gaze", websocket.New(s.handleGazeWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("http server listening", "port", s.port)

	go s.gazeHub.Run()
	go s.previewHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("http server failed", "err", err)
		}
	}()
}

// GazeHub is the broadcast hub for gaze samples.
func (s *Server) GazeHub() *hub.Hub {
	return s.gazeHub
}

// PreviewHub is the broadcast hub for JPEG preview frames.
func (s *Server) PreviewHub() *hub.Hub {
	return s.previewHub
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
