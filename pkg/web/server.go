// Package web exposes the cooking assistant over HTTP: a REST API for
// session control and a websocket per session for real-time progress.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/foodingo/foodingo/pkg/hub"
	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
)

// Server is the cooking assistant API server.
type Server struct {
	app      *fiber.App
	sessions *session.Manager
	recipes  recipe.Provider
	resolver resolver.Resolver
	events   *hub.Hub
	logger   *slog.Logger

	hubCancel context.CancelFunc
}

// NewServer wires the API around the given collaborators.
func NewServer(sessions *session.Manager, recipes recipe.Provider, res resolver.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		sessions: sessions,
		recipes:  recipes,
		resolver: res,
		events:   hub.New(logger),
		logger:   logger.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Foodingo",
		DisableStartupMessage: true,
	})

	// CORS for browser clients during development.
	app.Use(cors.New())

	app.Get("/", s.handleRoot)
	app.Get("/recipes", s.handleListRecipes)
	app.Get("/recipes/:recipe_id", s.handleGetRecipe)

	app.Post("/cooking/start", s.handleStartCooking)
	app.Post("/cooking/input", s.handleUserInput)
	app.Get("/cooking/status/:session_id", s.handleStatus)
	app.Post("/cooking/interrupt", s.handleInterrupt)
	app.Delete("/cooking/:session_id", s.handleEndSession)

	// WebSocket upgrade middleware.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:session_id", websocket.New(s.handleSessionWS))

	s.app = app
	return s
}

// Start runs the event hub and listens on the given port. Blocks
// until the server stops.
func (s *Server) Start(port string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go s.events.Run(ctx)

	s.logger.Info("api server listening", "port", port)
	return s.app.Listen(":" + port)
}

// Shutdown stops the server and the event hub.
func (s *Server) Shutdown() error {
	if s.hubCancel != nil {
		s.hubCancel()
	}
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events exposes the broadcast hub so the voice loop can publish too.
func (s *Server) Events() *hub.Hub {
	return s.events
}
