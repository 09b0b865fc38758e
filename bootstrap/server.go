package bootstrap

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go_ingest_backend/handlers"
	"go_ingest_backend/middleware"
	"go_ingest_backend/routes"
)

// NewServer builds the fiber app with the routes of every enabled role.
func (a *App) NewServer() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               "go-ingest-backend",
		BodyLimit:             int(a.Cfg.MaxFileSize) + 1<<20,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: a.Cfg.AppEnv == "prod",
	})
	server.Use(recover.New())
	server.Use(middleware.Logger(a.Cfg.AppEnv))
	server.Use(middleware.CORS(a.Cfg.AllowOrigins))

	server.Get("/health", handlers.Health)
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Infrastructure.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))

	if h := a.Handlers.FileHandler; h != nil {
		routes.RegisterFileRoutes(server, h)
	}
	if h := a.Handlers.EventsHandler; h != nil {
		routes.RegisterEventRoutes(server, h)
	}
	if h := a.Handlers.WSHandler; h != nil {
		routes.SetupWebSocketRoutes(server, h)
	}
	return server
}
