package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
)

// ErrorHandler is the app-wide fiber error handler. It maps typed failures to an
// HTTP status and the {success, error} envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status, msg = fe.Code, fe.Message
	case apperr.IsValidation(err), apperr.IsUnsupportedFormat(err):
		status, msg = fiber.StatusBadRequest, err.Error()
	case apperr.IsNotFound(err):
		status, msg = fiber.StatusNotFound, err.Error()
	case apperr.IsTransport(err):
		status, msg = fiber.StatusServiceUnavailable, "Service temporarily unavailable"
	}

	if status >= fiber.StatusInternalServerError {
		logging.Logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return c.Status(status).JSON(models.ApiResponse{Success: false, Error: msg})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(models.ApiResponse{Success: true, Data: data})
}
