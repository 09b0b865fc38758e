package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/fanout"
)

const wsWriteWait = 10 * time.Second

type WSHandler struct {
	gateway *fanout.Gateway
}

func NewWSHandler(gateway *fanout.Gateway) *WSHandler {
	return &WSHandler{gateway: gateway}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"success": false, "error": "Not a websocket request"})
}

type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) Send(frame []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s wsSink) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// HandleEvents streams push frames for the :fileId param, or the global stream
// when the route has none.
func (h *WSHandler) HandleEvents(c *websocket.Conn) {
	key := c.Params("fileId")
	if key == "" {
		key = fanout.AllKey
	}

	logging.Logger.Info("WebSocket connected", "key", key, "remote", c.RemoteAddr().String())

	// cancelled by the read loop once the client goes away
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := h.gateway.Stream(ctx, key, wsSink{conn: c})
	if err != nil && !errors.Is(err, fanout.ErrGatewayStopped) {
		logging.Logger.Error("Failed to send WebSocket message", "key", key, "error", err)
	}
	logging.Logger.Info("WebSocket disconnected", "key", key)
}
