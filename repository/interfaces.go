package repository

import (
	"context"

	"go_ingest_backend/models"
)

// FileStore is the durable store. Implementations return apperr typed errors:
// NotFoundError for absent ids, PersistenceError for storage failures and
// ValidationError for rejected status transitions.
type FileStore interface {
	Create(ctx context.Context, rec *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) (*models.FileRecord, error)
	// List returns one page, newest first, without processed data, plus the total
	// count of records matching filter.
	List(ctx context.Context, filter models.FileFilter, offset, limit int) ([]models.FileRecord, int64, error)
}

// FileRepository is the cache-aside surface every other component goes through.
type FileRepository interface {
	Create(ctx context.Context, fields models.FileFields) (*models.FileRecord, error)
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) (*models.FileRecord, error)
	FindAll(ctx context.Context, filter models.FileFilter, page, limit int) (*models.FileList, error)
	SearchRows(ctx context.Context, fileID string, query models.RowQuery, page, limit int) (*models.RowPage, error)
}
