package dedup

import (
	"context"
	"time"

	"gas-relay-sol/internal/pkg/types"
)

// DefaultTTL 是判重锁的默认存活时间。窗口内同一 message 摘要最多
// 允许一次赞助流程进入，窗口过后同样字节可重新提交。
const DefaultTTL = 5 * time.Second

// Store 是判重缓存的统一抽象。
// 约束：并发调用下，同一 digest 在 TTL 窗口内最多有一个调用方观察到
// alreadyLocked == false（抢锁成功），其余必须观察到 true。
// 条目仅靠 TTL 被动过期，正常路径不做显式删除。
type Store interface {
	CheckAndLock(ctx context.Context, digest types.Hash) (alreadyLocked bool, err error)
}
