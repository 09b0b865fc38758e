package handlers

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/fanout"
)

type EventsHandler struct {
	gateway *fanout.Gateway
}

func NewEventsHandler(gateway *fanout.Gateway) *EventsHandler {
	return &EventsHandler{gateway: gateway}
}

// sseSink frames each push message as one server-sent event.
type sseSink struct {
	w *bufio.Writer
}

func (s sseSink) Send(frame []byte) error {
	if _, err := s.w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	if _, err := s.w.WriteString("\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s sseSink) Ping() error {
	if _, err := s.w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// StreamAll serves GET /events.
func (h *EventsHandler) StreamAll(c *fiber.Ctx) error {
	return h.stream(c, fanout.AllKey)
}

// StreamFile serves GET /events/:fileId.
func (h *EventsHandler) StreamFile(c *fiber.Ctx) error {
	return h.stream(c, c.Params("fileId"))
}

func (h *EventsHandler) stream(c *fiber.Ctx, key string) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Status(fiber.StatusOK)

	remote := c.IP()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// fasthttp has no disconnect signal; the stream ends on the first failed write.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := sseSink{w: w}
		// headers leave with the first chunk
		if err := sink.Ping(); err != nil {
			return
		}
		logging.Logger.Info("SSE client connected", "key", key, "remote", remote)
		err := h.gateway.Stream(ctx, key, sink)
		if err != nil && !errors.Is(err, fanout.ErrGatewayStopped) {
			logging.Logger.Debug("SSE stream closed", "key", key, "remote", remote, "error", err)
		}
		logging.Logger.Info("SSE client disconnected", "key", key, "remote", remote)
	}))
	return nil
}

// FileConnections serves GET /connections/:fileId.
func (h *EventsHandler) FileConnections(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	return ok(c, models.ConnectionStats{
		FileID:      fileID,
		Connections: h.gateway.Registry().Count(fileID),
	})
}

// Connections serves GET /connections.
func (h *EventsHandler) Connections(c *fiber.Ctx) error {
	global, perFile := h.gateway.Registry().Stats()
	return ok(c, models.GlobalConnectionStats{
		GlobalConnections: global,
		FileConnections:   perFile,
	})
}
