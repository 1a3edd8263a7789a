package repository

import (
	"context"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
)

// ReadStatusAPI 后端已读状态接口
type ReadStatusAPI interface {
	MarkAsRead(ctx context.Context, documentID int64, t entity.DocumentType) error
	MarkAsUnread(ctx context.Context, documentID int64, t entity.DocumentType) error
	IsRead(ctx context.Context, documentID int64, t entity.DocumentType) (bool, error)
	// BatchStatus 真正的批量接口；后端未提供时返回错误，由调用方退回逐条查询
	BatchStatus(ctx context.Context, documentIDs []int64, t entity.DocumentType) (map[int64]bool, error)
	UnreadCount(ctx context.Context, t entity.DocumentType) (int, error)
	UnreadIDs(ctx context.Context, t entity.DocumentType) ([]int64, error)
	Readers(ctx context.Context, documentID int64, t entity.DocumentType) ([]entity.Reader, error)
	Statistics(ctx context.Context, documentID int64, t entity.DocumentType) (*entity.Statistics, error)
}
