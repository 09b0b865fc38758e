package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go_ingest_backend/pkg/apperr"
)

// LocalStore keeps objects as files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// resolve maps key to a path inside root, rejecting keys that escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", apperr.Validation("key", "empty object key")
	}
	p := filepath.Join(s.root, clean)
	if !strings.HasPrefix(p, filepath.Clean(s.root)+string(filepath.Separator)) {
		return "", apperr.Validation("key", "object key escapes storage root")
	}
	return p, nil
}

func (s *LocalStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return apperr.Transport("save object", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return apperr.Transport("save object", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return apperr.Transport("save object", err)
	}
	if err := f.Close(); err != nil {
		return apperr.Transport("save object", err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("object", key)
	}
	if err != nil {
		return nil, apperr.Transport("open object", err)
	}
	return f, nil
}

// Delete removes the object and its per-file directory when it becomes empty.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Transport("delete object", err)
	}
	if dir := filepath.Dir(p); dir != filepath.Clean(s.root) {
		_ = os.Remove(dir)
	}
	return nil
}
