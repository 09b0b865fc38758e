package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/cache"
	"go_ingest_backend/platform/metrics"
)

const cacheKeyPrefix = "files:"

// filesRepository puts a cache-aside layer in front of the durable FileStore.
// Record entries (files:<id>) live in the shared level only and are overwritten or
// deleted on every write, so every process sees a write at once. List and
// row-search entries are only expired by TTL and may be stale within that window.
type filesRepository struct {
	store   FileStore
	files   *cache.TypedCache[models.FileRecord]
	lists   *cache.TypedCache[models.FileList]
	rows    *cache.TypedCache[models.RowPage]
	ttl     time.Duration
	sf      singleflight.Group
	metrics *metrics.Metrics
}

func NewFilesRepository(store FileStore, cacheService cache.CacheService, ttl time.Duration, m *metrics.Metrics) FileRepository {
	return &filesRepository{
		store:   store,
		files:   cache.NewTypedCache[models.FileRecord](cache.Shared(cacheService)),
		lists:   cache.NewTypedCache[models.FileList](cacheService),
		rows:    cache.NewTypedCache[models.RowPage](cacheService),
		ttl:     ttl,
		metrics: m,
	}
}

func recordKey(id string) string {
	return cacheKeyPrefix + id
}

func listKey(filter models.FileFilter, page, limit int) string {
	f, _ := json.Marshal(filter)
	return fmt.Sprintf("%slist:%s:%d:%d", cacheKeyPrefix, f, page, limit)
}

func rowsKey(fileID string, query models.RowQuery, page, limit int) string {
	q, _ := json.Marshal(query)
	return fmt.Sprintf("%s%s:data:%s:%d:%d", cacheKeyPrefix, fileID, q, page, limit)
}

func (r *filesRepository) Create(ctx context.Context, fields models.FileFields) (*models.FileRecord, error) {
	if fields.OriginalName == "" {
		return nil, apperr.Validation("originalName", "required")
	}
	if fields.MimeType == "" {
		return nil, apperr.Validation("mimeType", "required")
	}
	if fields.Size < 0 {
		return nil, apperr.Validation("size", "must not be negative")
	}

	rec := &models.FileRecord{
		ID:           uuid.NewString(),
		OriginalName: fields.OriginalName,
		MimeType:     fields.MimeType,
		Size:         fields.Size,
		Path:         fields.Path,
		Status:       models.StatusPending,
	}
	if err := r.store.Create(ctx, rec); err != nil {
		logging.Logger.Error("fail Create", "error", err)
		return nil, err
	}
	r.putRecord(ctx, rec)
	return rec, nil
}

func (r *filesRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	key := recordKey(id)
	cached, ok, err := r.files.Get(ctx, key)
	if err != nil {
		logging.Logger.Warn("evicting undecodable cache entry", "key", key, "error", err)
		_ = r.files.Delete(ctx, key)
	} else if ok {
		r.metrics.CacheLookup("file", true)
		return &cached, nil
	}
	r.metrics.CacheLookup("file", false)

	// concurrent misses for one id share a single durable read; it must outlive
	// the caller that started it
	v, err, _ := r.sf.Do(id, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		rec, err := r.store.GetByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		r.putRecord(loadCtx, rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec := *v.(*models.FileRecord)
	return &rec, nil
}

func (r *filesRepository) Update(ctx context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	rec, err := r.store.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	r.sf.Forget(id)
	r.putRecord(ctx, rec)
	return rec, nil
}

func (r *filesRepository) Delete(ctx context.Context, id string) (*models.FileRecord, error) {
	rec, err := r.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	r.sf.Forget(id)
	if err := r.files.Delete(ctx, recordKey(id)); err != nil {
		logging.Logger.Error("fail evicting deleted record", "fileID", id, "error", err)
	}
	return rec, nil
}

func (r *filesRepository) FindAll(ctx context.Context, filter models.FileFilter, page, limit int) (*models.FileList, error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("status", string(filter.Status))
	}

	key := listKey(filter, page, limit)
	if cached, ok, err := r.lists.Get(ctx, key); err == nil && ok {
		r.metrics.CacheLookup("list", true)
		return &cached, nil
	}
	r.metrics.CacheLookup("list", false)

	files, total, err := r.store.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	result := &models.FileList{Files: files, Total: total}
	if err := r.lists.Set(ctx, key, *result, r.ttl); err != nil {
		logging.Logger.Warn("fail caching file list", "key", key, "error", err)
	}
	return result, nil
}

func (r *filesRepository) SearchRows(ctx context.Context, fileID string, query models.RowQuery, page, limit int) (*models.RowPage, error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	search, err := compileRowQuery(query)
	if err != nil {
		return nil, err
	}

	key := rowsKey(fileID, query, page, limit)
	if cached, ok, err := r.rows.Get(ctx, key); err == nil && ok {
		r.metrics.CacheLookup("rows", true)
		return &cached, nil
	}
	r.metrics.CacheLookup("rows", false)

	rec, err := r.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var (
		rows   []models.Row
		schema models.Schema
	)
	if rec.ProcessedData != nil {
		rows = rec.ProcessedData.Data
		schema = rec.ProcessedData.Schema
	}

	data, total := search.run(rows, page, limit)
	result := &models.RowPage{
		Data:   data,
		Total:  total,
		Page:   page,
		Limit:  limit,
		Schema: schema,
	}
	if err := r.rows.Set(ctx, key, *result, r.ttl); err != nil {
		logging.Logger.Warn("fail caching row page", "key", key, "error", err)
	}
	return result, nil
}

// putRecord resets the record entry to the durable value. If the write fails the
// entry is deleted so a stale snapshot cannot outlive the failed write.
func (r *filesRepository) putRecord(ctx context.Context, rec *models.FileRecord) {
	key := recordKey(rec.ID)
	if err := r.files.Set(ctx, key, *rec, r.ttl); err != nil {
		logging.Logger.Warn("fail caching record, evicting", "fileID", rec.ID, "error", err)
		if err := r.files.Delete(ctx, key); err != nil {
			logging.Logger.Error("fail evicting record", "fileID", rec.ID, "error", err)
		}
	}
}
