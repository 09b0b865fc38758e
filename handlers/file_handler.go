package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/services"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Retrier re-announces a stored file for processing.
type Retrier interface {
	Retry(ctx context.Context, fileID string) error
}

type FileHandler struct {
	uploads *services.UploadService
	retrier Retrier
}

func NewFileHandler(uploads *services.UploadService, retrier Retrier) *FileHandler {
	return &FileHandler{uploads: uploads, retrier: retrier}
}

func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file", "No file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validationf("file", err, "cannot read upload")
	}
	defer f.Close()

	resp, err := h.uploads.Upload(c.UserContext(), services.UploadInput{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.ApiResponse{Success: true, Data: resp})
}

func (h *FileHandler) Status(c *fiber.Ctx) error {
	view, err := h.uploads.Status(c.UserContext(), c.Params("fileId"))
	if err != nil {
		return err
	}
	return ok(c, view)
}

func (h *FileHandler) List(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	filter := models.FileFilter{
		Status:   models.FileStatus(strings.ToUpper(c.Query("status"))),
		MimeType: c.Query("mimeType"),
	}
	list, err := h.uploads.List(c.UserContext(), filter, page, limit)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"files":      list.Files,
		"pagination": models.NewPagination(page, limit, list.Total),
	})
}

func (h *FileHandler) Get(c *fiber.Ctx) error {
	rec, err := h.uploads.Get(c.UserContext(), c.Params("fileId"))
	if err != nil {
		return err
	}
	return ok(c, rec)
}

func (h *FileHandler) Delete(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	if err := h.uploads.Delete(c.UserContext(), fileID); err != nil {
		return err
	}
	logging.Logger.Info("file deleted", "fileID", fileID)
	return c.JSON(models.ApiResponse{Success: true, Message: "File deleted"})
}

// Rows serves GET /api/files/:fileId/data. query and sort are JSON objects, e.g.
// query={"city":"^ber"}&sort={"age":-1,"name":1}.
func (h *FileHandler) Rows(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	var query models.RowQuery
	if raw := c.Query("query"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query.Filter); err != nil {
			return apperr.Validationf("query", err, "must be a JSON object")
		}
	}
	if query.Sort, err = parseSort(c.Query("sort")); err != nil {
		return err
	}

	rows, err := h.uploads.SearchRows(c.UserContext(), c.Params("fileId"), query, page, limit)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *FileHandler) ProcessedData(c *fiber.Ctx) error {
	view, err := h.uploads.ProcessedData(c.UserContext(), c.Params("fileId"))
	if err != nil {
		return err
	}
	return ok(c, view)
}

func (h *FileHandler) Retry(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	if err := h.retrier.Retry(c.UserContext(), fileID); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(models.ApiResponse{
		Success: true,
		Data:    fiber.Map{"fileId": fileID},
		Message: "Processing restarted",
	})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func pageParams(c *fiber.Ctx) (int, int, error) {
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intQuery(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validationf(key, err, "must be an integer")
	}
	return n, nil
}

// parseSort reads a JSON object of column → direction keeping the key order,
// which a map would lose. Directions are 1/-1 or "asc"/"desc".
func parseSort(raw string) ([]models.SortField, error) {
	if raw == "" {
		return nil, nil
	}
	invalid := func(err error) error {
		return apperr.Validationf("sort", err, "must be a JSON object of column to 1 or -1")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, invalid(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, invalid(nil)
	}

	var fields []models.SortField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, invalid(err)
		}
		column, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, invalid(err)
		}
		dir, err := sortDirection(v)
		if err != nil {
			return nil, invalid(err)
		}
		fields = append(fields, models.SortField{Column: column, Direction: dir})
	}
	if _, err := dec.Token(); err != nil {
		return nil, invalid(err)
	}
	return fields, nil
}

func sortDirection(v any) (int, error) {
	switch d := v.(type) {
	case float64:
		if d == 1 || d == -1 {
			return int(d), nil
		}
	case string:
		switch strings.ToLower(d) {
		case "asc", "1":
			return 1, nil
		case "desc", "-1":
			return -1, nil
		}
	}
	return 0, fmt.Errorf("unsupported direction %v", v)
}
