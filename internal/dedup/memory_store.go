package dedup

import (
	"context"
	"sync"
	"time"

	"gas-relay-sol/internal/pkg/types"
)

// MemoryStore 是单实例部署用的进程内判重锁：互斥 map + 惰性过期。
// 超过 sweepThreshold 时顺带清理过期条目，避免无界增长。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[types.Hash]time.Time // digest -> 过期时刻
	ttl     time.Duration
	now     func() time.Time // 测试注入
}

const sweepThreshold = 4096

// NewMemoryStore 创建进程内判重锁；ttl <= 0 时使用 DefaultTTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[types.Hash]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) CheckAndLock(_ context.Context, digest types.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[digest]; ok && now.Before(exp) {
		return true, nil
	}

	if len(s.entries) >= sweepThreshold {
		s.sweepLocked(now)
	}
	s.entries[digest] = now.Add(s.ttl)
	return false, nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
}
