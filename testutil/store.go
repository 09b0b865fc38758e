package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
)

// MemoryFileStore is an in-memory FileStore with the same error contract as the
// gorm store. Records are deep-copied on the way in and out.
type MemoryFileStore struct {
	mu      sync.Mutex
	records map[string]models.FileRecord
	clock   time.Time
	fail    error
	reads   int
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{
		records: make(map[string]models.FileRecord),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FailWith makes every following call return a PersistenceError wrapping err.
// Pass nil to heal the store.
func (s *MemoryFileStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Reads counts GetByID calls that reached the store.
func (s *MemoryFileStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Seed stores rec as-is, bypassing transition checks.
func (s *MemoryFileStore) Seed(rec models.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = clone(rec)
}

func (s *MemoryFileStore) Create(_ context.Context, rec *models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return apperr.Persistence("create", s.fail)
	}
	if _, exists := s.records[rec.ID]; exists {
		return apperr.Persistence("create", errors.New("duplicate key"))
	}
	now := s.tick()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[rec.ID] = clone(*rec)
	return nil
}

func (s *MemoryFileStore) GetByID(_ context.Context, id string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fail != nil {
		return nil, apperr.Persistence("get", s.fail)
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("file", id)
	}
	out := clone(rec)
	return &out, nil
}

func (s *MemoryFileStore) Update(_ context.Context, id string, upd models.FileUpdate) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, apperr.Persistence("update", s.fail)
	}
	stored, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("file", id)
	}
	rec := clone(stored)
	if err := upd.ApplyTo(&rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.tick()
	s.records[id] = clone(rec)
	return &rec, nil
}

func (s *MemoryFileStore) Delete(_ context.Context, id string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, apperr.Persistence("delete", s.fail)
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, apperr.NotFound("file", id)
	}
	delete(s.records, id)
	return &rec, nil
}

func (s *MemoryFileStore) List(_ context.Context, filter models.FileFilter, offset, limit int) ([]models.FileRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, 0, apperr.Persistence("list", s.fail)
	}

	matched := make([]models.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.MimeType != "" && rec.MimeType != filter.MimeType {
			continue
		}
		rec = clone(rec)
		rec.ProcessedData = nil
		matched = append(matched, rec)
	}
	slices.SortFunc(matched, func(a, b models.FileRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.FileRecord{}, total, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], total, nil
}

// tick advances a fake clock so creation order is strictly increasing.
func (s *MemoryFileStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func clone(rec models.FileRecord) models.FileRecord {
	data, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	var out models.FileRecord
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}
