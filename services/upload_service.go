package services

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"go_ingest_backend/config"
	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/storage"
	"go_ingest_backend/repository"
	"go_ingest_backend/utils"
)

var extensionMimeTypes = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// UploadInput is one received file.
type UploadInput struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// FileStatusView is the status projection returned by Status.
type FileStatusView struct {
	ID              string            `json:"id"`
	OriginalName    string            `json:"originalName"`
	Status          models.FileStatus `json:"status"`
	ProcessingError string            `json:"processingError,omitempty"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
}

// ProcessedDataView pairs file metadata with its processed data.
type ProcessedDataView struct {
	File struct {
		OriginalName string            `json:"originalName"`
		MimeType     string            `json:"mimeType"`
		Status       models.FileStatus `json:"status"`
		CreatedAt    string            `json:"createdAt"`
	} `json:"file"`
	ProcessedData *models.ProcessedData `json:"processedData"`
}

type UploadService struct {
	repo         repository.FileRepository
	store        storage.ObjectStore
	publisher    events.Publisher
	maxFileSize  int64
	allowedTypes []string
}

func NewUploadService(repo repository.FileRepository, store storage.ObjectStore, publisher events.Publisher, cfg *config.Config) *UploadService {
	return &UploadService{
		repo:         repo,
		store:        store,
		publisher:    publisher,
		maxFileSize:  cfg.MaxFileSize,
		allowedTypes: cfg.AllowedMimeTypes,
	}
}

// ResolveMimeType keeps the declared type when it is allowed, otherwise falls back
// to the type implied by the file extension. Browsers often send
// application/octet-stream or vendor types for CSV files.
func (s *UploadService) ResolveMimeType(filename, declared string) string {
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if slices.Contains(s.allowedTypes, declared) {
		return declared
	}
	if byExt, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return declared
}

func (s *UploadService) validate(in UploadInput) error {
	if in.Filename == "" {
		return apperr.Validation("file", "No file provided")
	}
	if !slices.Contains(s.allowedTypes, in.MimeType) {
		return apperr.UnsupportedFormat(in.MimeType)
	}
	if in.Size <= 0 {
		return apperr.Validation("file", "File is empty")
	}
	if s.maxFileSize > 0 && in.Size > s.maxFileSize {
		return apperr.Validation("file", "File too large")
	}
	return nil
}

// Upload stores the raw file, creates its record and announces it on FILE_UPLOADED.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*models.UploadResponse, error) {
	in.MimeType = s.ResolveMimeType(in.Filename, in.MimeType)
	if err := s.validate(in); err != nil {
		logging.Logger.Warn("rejected upload", "file", in.Filename, "mimeType", in.MimeType, "size", in.Size, "error", err)
		return nil, err
	}

	rec, err := s.repo.Create(ctx, models.FileFields{
		OriginalName: in.Filename,
		MimeType:     in.MimeType,
		Size:         in.Size,
	})
	if err != nil {
		logging.Logger.Error("fail creating file record", "error", err)
		return nil, err
	}

	key := utils.ObjectKey(rec.ID, in.Filename)
	if err := s.store.Save(ctx, key, in.Body, in.Size, in.MimeType); err != nil {
		logging.Logger.Error("fail storing raw file", "fileID", rec.ID, "error", err)
		if _, derr := s.repo.Delete(ctx, rec.ID); derr != nil {
			logging.Logger.Error("fail removing orphan record", "fileID", rec.ID, "error", derr)
		}
		return nil, err
	}

	updated, err := s.repo.Update(ctx, rec.ID, models.FileUpdate{Path: &key})
	if err != nil {
		logging.Logger.Error("fail recording file path", "fileID", rec.ID, "path", key, "error", err)
		return nil, err
	}
	rec = updated

	// a failed publish leaves the record PENDING; POST /api/retry re-announces it
	if err := events.PublishEvent(ctx, s.publisher, models.FileUploadedEvent{
		FileID:   rec.ID,
		Path:     key,
		Metadata: rec.Metadata(),
	}); err != nil {
		logging.Logger.Error("fail publishing upload event", "fileID", rec.ID, "error", err)
		return nil, err
	}

	logging.Logger.Info("File uploaded successfully", "fileID", rec.ID, "size", in.Size, "mimeType", in.MimeType)
	return &models.UploadResponse{FileID: rec.ID, Status: rec.Status}, nil
}

func (s *UploadService) Get(ctx context.Context, fileID string) (*models.FileRecord, error) {
	return s.repo.GetByID(ctx, fileID)
}

func (s *UploadService) Status(ctx context.Context, fileID string) (*FileStatusView, error) {
	rec, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &FileStatusView{
		ID:              rec.ID,
		OriginalName:    rec.OriginalName,
		Status:          rec.Status,
		ProcessingError: rec.ProcessingError,
		CreatedAt:       rec.CreatedAt.Format(timeLayout),
		UpdatedAt:       rec.UpdatedAt.Format(timeLayout),
	}, nil
}

func (s *UploadService) List(ctx context.Context, filter models.FileFilter, page, limit int) (*models.FileList, error) {
	return s.repo.FindAll(ctx, filter, page, limit)
}

// Delete removes the record, then the raw object. Object removal is best effort.
func (s *UploadService) Delete(ctx context.Context, fileID string) error {
	rec, err := s.repo.Delete(ctx, fileID)
	if err != nil {
		return err
	}
	if rec.Path == "" {
		return nil
	}
	if err := s.store.Delete(ctx, rec.Path); err != nil {
		logging.Logger.Error("Failed to delete physical file", "fileID", fileID, "path", rec.Path, "error", err)
	}
	return nil
}

func (s *UploadService) SearchRows(ctx context.Context, fileID string, query models.RowQuery, page, limit int) (*models.RowPage, error) {
	return s.repo.SearchRows(ctx, fileID, query, page, limit)
}

func (s *UploadService) ProcessedData(ctx context.Context, fileID string) (*ProcessedDataView, error) {
	rec, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	view := &ProcessedDataView{ProcessedData: rec.ProcessedData}
	view.File.OriginalName = rec.OriginalName
	view.File.MimeType = rec.MimeType
	view.File.Status = rec.Status
	view.File.CreatedAt = rec.CreatedAt.Format(timeLayout)
	return view, nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
