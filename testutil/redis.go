package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"go_ingest_backend/platform/cache"
	"go_ingest_backend/platform/redis"
)

// NewRedis starts a miniredis server bound to the test lifetime.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redis.NewService(rdb)
}

// NewCache builds the two-level cache over a miniredis-backed L2.
func NewCache(t *testing.T) (*miniredis.Miniredis, cache.CacheService) {
	t.Helper()
	mr, svc := NewRedis(t)
	return mr, cache.NewCacheService(cache.InitL1Cache(), svc, &cache.Config{L1TTL: time.Millisecond})
}
