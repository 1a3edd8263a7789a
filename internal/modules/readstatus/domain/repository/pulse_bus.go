package repository

import (
	"context"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
)

// PulseBus 跨进程广播已读变更。只是提示：不在线的订阅方收不到，也没有重放。
type PulseBus interface {
	Publish(ctx context.Context, p entity.Pulse) error
	// Subscribe 阻塞直到 ctx 结束或底层连接出错
	Subscribe(ctx context.Context, fn func(entity.Pulse)) error
	Close() error
}
