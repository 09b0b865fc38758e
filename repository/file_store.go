package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
)

type fileStore struct {
	DB *gorm.DB
}

func NewFileStore(db *gorm.DB) FileStore {
	return &fileStore{DB: db}
}

func (r *fileStore) Create(ctx context.Context, rec *models.FileRecord) error {
	if err := r.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return apperr.Persistence("create", err)
	}
	return nil
}

func (r *fileStore) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, mapError("get", id, err)
	}
	return &rec, nil
}

// Update locks the row, applies the partial write through FileUpdate.ApplyTo so the
// transition rules are checked against the durable status, and saves every column.
func (r *fileStore) Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}
		if err := upd.ApplyTo(&rec); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, mapError("update", id, err)
	}
	return &rec, nil
}

func (r *fileStore) Delete(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
	if err != nil {
		return nil, mapError("delete", id, err)
	}
	return &rec, nil
}

func (r *fileStore) List(ctx context.Context, filter models.FileFilter, offset, limit int) ([]models.FileRecord, int64, error) {
	scoped := func() *gorm.DB {
		query := r.DB.WithContext(ctx).Model(&models.FileRecord{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.MimeType != "" {
			query = query.Where("mime_type = ?", filter.MimeType)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, apperr.Persistence("count", err)
	}

	files := []models.FileRecord{}
	err := scoped().
		Omit("processed_data").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, 0, apperr.Persistence("list", err)
	}
	return files, total, nil
}

func mapError(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("file", id)
	}
	if apperr.IsValidation(err) {
		return err
	}
	return apperr.Persistence(op, err)
}
