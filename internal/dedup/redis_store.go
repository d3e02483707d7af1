package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gas-relay-sol/internal/pkg/types"
)

// Redis key 前缀
const lockPrefix = "relay:dedup:msg"

// RedisStore 基于 Redis SET NX 实现判重锁，供多实例部署使用。
// SET NX + PX 在服务端原子完成 check-and-set，天然满足 Store 的约束。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore 创建 Redis 判重锁；ttl <= 0 时使用 DefaultTTL
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) getKey(digest types.Hash) string {
	return fmt.Sprintf("%s:%s", lockPrefix, digest.String())
}

func (s *RedisStore) CheckAndLock(ctx context.Context, digest types.Hash) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.getKey(digest), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}
	// ok == true 表示抢锁成功
	return !ok, nil
}
