package routes

import (
	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/handlers"
)

func RegisterFileRoutes(app *fiber.App, fileHandler *handlers.FileHandler) {
	api := app.Group("/api")
	api.Post("/upload", fileHandler.Upload)
	api.Get("/status/:fileId", fileHandler.Status)
	api.Post("/retry/:fileId", fileHandler.Retry)
	api.Get("/data/:fileId", fileHandler.ProcessedData)

	files := api.Group("/files")
	files.Get("/", fileHandler.List)
	files.Get("/:fileId", fileHandler.Get)
	files.Delete("/:fileId", fileHandler.Delete)
	files.Get("/:fileId/data", fileHandler.Rows)
}
