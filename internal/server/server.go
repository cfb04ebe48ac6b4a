package server

import (
	"context"
	"log"

	"notefiber-editor/internal/bootstrap"
	"notefiber-editor/internal/config"
	"notefiber-editor/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		// multipart overhead on top of the largest accepted upload
		BodyLimit: cfg.Editor.MaxUploadBytes + 1<<20,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	if cfg.Storage.Driver == "local" {
		app.Static("/uploads", cfg.Storage.LocalDir)
	}

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting requests, then closes editor sessions so pending
// changes are saved.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.container.Close()
	return err
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	auth := serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)

	api := app.Group("/api")
	ws := app.Group("/ws")

	c.NoteController.RegisterRoutes(api, auth)
	c.EditorController.RegisterRoutes(api, ws, auth)
}
