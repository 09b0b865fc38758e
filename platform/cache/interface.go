package cache

import (
	"context"
	"time"
)

// CacheService stores serialized snapshots. A failed read is reported as a miss so
// callers fall back to durable storage.
type CacheService interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, value []byte, expiration time.Duration) error
	DelCache(ctx context.Context, key string) error
}

// CacheStore is the shared (L2) backend, implemented by the redis service.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool, error)
	SetCache(ctx context.Context, key string, value []byte, expiration time.Duration) error
	DelCache(ctx context.Context, key string) error
}
