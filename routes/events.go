package routes

import (
	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/handlers"
)

func RegisterEventRoutes(app *fiber.App, eventsHandler *handlers.EventsHandler) {
	app.Get("/events", eventsHandler.StreamAll)
	app.Get("/events/:fileId", eventsHandler.StreamFile)
	app.Get("/connections", eventsHandler.Connections)
	app.Get("/connections/:fileId", eventsHandler.FileConnections)
}
