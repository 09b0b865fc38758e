package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// L1CacheService is the in-process level. It holds the same JSON snapshots as L2
// so a hit never shares mutable state with a caller.
type L1CacheService struct {
	client *cache.Cache
}

func InitL1Cache() *L1CacheService {
	return &L1CacheService{
		client: cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *L1CacheService) Get(key string) ([]byte, bool) {
	v, ok := s.client.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (s *L1CacheService) Set(key string, value []byte, expiration time.Duration) {
	s.client.Set(key, value, expiration)
}

func (s *L1CacheService) Del(key string) {
	s.client.Delete(key)
}
