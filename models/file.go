package models

import (
	"time"

	"github.com/lib/pq"

	"go_ingest_backend/pkg/apperr"
)

type FileStatus string

// File status constants
const (
	StatusPending    FileStatus = "PENDING"
	StatusProcessing FileStatus = "PROCESSING"
	StatusCompleted  FileStatus = "COMPLETED"
	StatusError      FileStatus = "ERROR"
)

func (s FileStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether a record may move from s to next.
// Terminal states only leave through a retry, which re-enters PROCESSING.
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusError
	case StatusCompleted, StatusError:
		return next == StatusProcessing
	}
	return false
}

type FileRecord struct {
	ID           string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	OriginalName string     `gorm:"column:original_name;type:varchar(512);not null" json:"originalName"`
	MimeType     string     `gorm:"column:mime_type;type:varchar(255);not null" json:"mimeType"`
	Size         int64      `gorm:"column:size;type:bigint;not null" json:"size"`
	Path         string     `gorm:"column:path;type:text" json:"path"`
	Status       FileStatus `gorm:"column:status;type:varchar(20);not null;default:'PENDING';index:idx_files_status" json:"status"`

	ProcessingError string         `gorm:"column:processing_error;type:text" json:"processingError,omitempty"`
	ProcessedData   *ProcessedData `gorm:"column:processed_data;type:jsonb;serializer:json" json:"processedData,omitempty"`
	Columns         pq.StringArray `gorm:"column:columns;type:text[]" json:"columns,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;index:idx_files_created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (FileRecord) TableName() string {
	return "files"
}

func (f *FileRecord) Metadata() FileMetadata {
	return FileMetadata{
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
	}
}

// FileFields are the caller-supplied attributes of a new record.
type FileFields struct {
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
}

// FileUpdate is a partial write. Nil fields are left untouched.
type FileUpdate struct {
	Path            *string
	Status          *FileStatus
	ProcessingError *string
	ProcessedData   *ProcessedData
}

// ApplyTo mutates rec in place, rejecting illegal status transitions and keeping
// processingError present only on ERROR and processedData only on COMPLETED.
func (u FileUpdate) ApplyTo(rec *FileRecord) error {
	if u.Status != nil {
		if !u.Status.Valid() {
			return apperr.Validation("status", string(*u.Status))
		}
		if !rec.Status.CanTransitionTo(*u.Status) {
			return apperr.Validation("status", "cannot transition from "+string(rec.Status)+" to "+string(*u.Status))
		}
		rec.Status = *u.Status
	}
	if u.ProcessedData != nil && rec.Status != StatusCompleted {
		return apperr.Validation("processedData", "only allowed with status COMPLETED")
	}
	if u.ProcessingError != nil && rec.Status != StatusError {
		return apperr.Validation("processingError", "only allowed with status ERROR")
	}

	if u.Path != nil {
		rec.Path = *u.Path
	}
	if u.ProcessedData != nil {
		rec.ProcessedData = u.ProcessedData
		rec.Columns = append(pq.StringArray(nil), u.ProcessedData.Columns...)
	}
	if u.ProcessingError != nil {
		rec.ProcessingError = *u.ProcessingError
	}

	if rec.Status != StatusError {
		rec.ProcessingError = ""
	}
	if rec.Status != StatusCompleted {
		rec.ProcessedData = nil
		rec.Columns = nil
	}
	return nil
}

// FileFilter narrows FindAll. Empty fields match everything.
type FileFilter struct {
	Status   FileStatus `json:"status,omitempty"`
	MimeType string     `json:"mimeType,omitempty"`
}

type FileList struct {
	Files []FileRecord `json:"files"`
	Total int64        `json:"total"`
}
