package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"go_ingest_backend/pkg/logging"
)

func CORS(allowOrigins string) fiber.Handler {
	logging.Logger.Info("CORS configured", "allowOrigins", allowOrigins)
	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Cache-Control",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
	})
}
