package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TypedCache serializes values of one type to JSON snapshots.
type TypedCache[T any] struct {
	cache CacheService
}

func NewTypedCache[T any](cache CacheService) *TypedCache[T] {
	return &TypedCache[T]{cache: cache}
}

func (tc *TypedCache[T]) Set(ctx context.Context, key string, value T, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return tc.cache.SetCache(ctx, key, data, expiration)
}

// Get returns a fresh copy on every hit. An undecodable snapshot is reported as an
// error together with exists=true so the caller can evict it.
func (tc *TypedCache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	raw, exists := tc.cache.GetCache(ctx, key)
	if !exists {
		return zero, false, nil
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, true, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return result, true, nil
}

func (tc *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return tc.cache.DelCache(ctx, key)
}
