package server

import (
	"context"

	"move-quote-be/internal/bootstrap"
	"move-quote-be/internal/config"
	"move-quote-be/internal/pkg/serverutils"

	"github.com/bytedance/sonic"
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
	bodyLimit := int(cfg.Intake.MaxUploadBytes) + 1<<20
	app := fiber.New(fiber.Config{
		BodyLimit:   bodyLimit,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Session-Token",
		AllowMethods:     "GET, POST, PATCH, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Static
	app.Static("/uploads", cfg.App.UploadDir)

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
		errCh <- s.app.Listen(":" + s.cfg.App.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.Shutdown()
	}
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.HealthController.RegisterRoutes(api)
	c.QuoteController.RegisterRoutes(api)
	c.ItemController.RegisterRoutes(api)
	c.AddressController.RegisterRoutes(api)

	c.IntakeHandler.RegisterRoutes(api)
}
