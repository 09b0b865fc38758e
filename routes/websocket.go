package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/handlers"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")

	// WebSocket route
	ws.Use("/events", wsHandler.WebSocketUpgrade)
	ws.Get("/events", websocket.New(wsHandler.HandleEvents))
	ws.Get("/events/:fileId", websocket.New(wsHandler.HandleEvents))
}
