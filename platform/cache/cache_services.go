package cache

import (
	"context"
	"time"

	"go_ingest_backend/pkg/logging"
)

type Config struct {
	// L1TTL caps how long a snapshot lives in process memory. Other processes write
	// through L2 only, so this bounds how stale a local read can be.
	L1TTL time.Duration
}

type Service struct {
	l1     *L1CacheService
	l2     CacheStore
	config *Config
}

func NewCacheService(l1 *L1CacheService, l2 CacheStore, config *Config) CacheService {
	if config == nil || config.L1TTL <= 0 {
		config = &Config{L1TTL: 2 * time.Second}
	}
	return &Service{l1: l1, l2: l2, config: config}
}

func (cs *Service) GetCache(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := cs.l1.Get(key); ok {
		return data, true
	}
	data, ok, err := cs.l2.GetCache(ctx, key)
	if err != nil {
		logging.Logger.Warn("l2 fail GetCache, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	cs.l1.Set(key, data, cs.config.L1TTL)
	return data, true
}

func (cs *Service) SetCache(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := cs.l2.SetCache(ctx, key, value, expiration); err != nil {
		logging.Logger.Error("l2 fail SetCache", "key", key, "error", err)
		cs.l1.Del(key)
		return err
	}
	cs.l1.Set(key, value, cs.l1TTL(expiration))
	return nil
}

func (cs *Service) DelCache(ctx context.Context, key string) error {
	cs.l1.Del(key)
	if err := cs.l2.DelCache(ctx, key); err != nil {
		logging.Logger.Error("l2 fail DelCache", "key", key, "error", err)
		return err
	}
	return nil
}

func (cs *Service) l1TTL(expiration time.Duration) time.Duration {
	ttl := time.Duration(float64(expiration) * 0.3)
	if ttl <= 0 || ttl > cs.config.L1TTL {
		ttl = cs.config.L1TTL
	}
	return ttl
}

// sharedView reads and writes L2 only.
type sharedView struct {
	cs *Service
}

// Shared returns a view of cs that skips the in-process level. Entries that must
// never be stale across processes go through it; L2 is the only copy they have.
func Shared(cs CacheService) CacheService {
	if s, ok := cs.(*Service); ok {
		return &sharedView{cs: s}
	}
	return cs
}

func (v *sharedView) GetCache(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := v.cs.l2.GetCache(ctx, key)
	if err != nil {
		logging.Logger.Warn("l2 fail GetCache, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (v *sharedView) SetCache(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	v.cs.l1.Del(key)
	if err := v.cs.l2.SetCache(ctx, key, value, expiration); err != nil {
		logging.Logger.Error("l2 fail SetCache", "key", key, "error", err)
		return err
	}
	return nil
}

func (v *sharedView) DelCache(ctx context.Context, key string) error {
	return v.cs.DelCache(ctx, key)
}
