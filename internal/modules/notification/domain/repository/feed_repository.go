package repository

import (
	"context"
	"errors"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
)

// ErrCorrupt 持久化的数据无法解析
var ErrCorrupt = errors.New("notification feed: corrupt snapshot")

// FeedRepository 通知列表整体快照的读写
type FeedRepository interface {
	// Load 没有快照时返回空列表
	Load(ctx context.Context) ([]entity.Record, error)
	Save(ctx context.Context, records []entity.Record) error
}
