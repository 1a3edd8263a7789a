package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/catalog"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/observer"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

const (
	DefaultMaxRecords = 200
	persistTimeout    = 5 * time.Second
)

// FeedService 通知中心列表，最新的在前
type FeedService interface {
	Add(in entity.Input) entity.Record
	// Merge 把推送消息并入列表；id 已存在时丢弃并返回 false
	Merge(msg event.Message) (entity.Record, bool)
	MarkAsRead(id string) bool
	MarkAllAsRead()
	Clear()
	List() []entity.Record
	UnreadCount() int
	Subscribe(fn func()) (unsubscribe func())
	// Rebind 切换到另一份存储（换用户登录）并重新加载
	Rebind(ctx context.Context, repo repository.FeedRepository)
}

type feedServiceImpl struct {
	mu         sync.Mutex
	repo       repository.FeedRepository
	records    []entity.Record
	maxRecords int
	now        func() time.Time

	// persistMu 串行化“取快照 + 落盘”，后取的快照不会被先取的覆盖
	persistMu sync.Mutex

	observers observer.Registry
}

// NewFeedService 读取已持久化的列表；数据损坏时丢弃，从空列表开始
func NewFeedService(ctx context.Context, repo repository.FeedRepository, maxRecords int) FeedService {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	s := &feedServiceImpl{
		repo:       repo,
		maxRecords: maxRecords,
		now:        time.Now,
	}
	s.records = s.load(ctx, repo)
	return s
}

func (s *feedServiceImpl) load(ctx context.Context, repo repository.FeedRepository) []entity.Record {
	records, err := repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCorrupt) {
			zlog.Warn("discard corrupt notification snapshot", zap.Error(err))
		} else {
			zlog.Error("load notifications failed", zap.Error(err))
		}
		return nil
	}
	if len(records) > s.maxRecords {
		records = records[:s.maxRecords]
	}
	return records
}

func (s *feedServiceImpl) Rebind(ctx context.Context, repo repository.FeedRepository) {
	records := s.load(ctx, repo)
	s.mu.Lock()
	s.repo = repo
	s.records = records
	s.mu.Unlock()
	s.observers.Notify()
}

func (s *feedServiceImpl) Add(in entity.Input) entity.Record {
	now := s.now()
	severity := in.Severity
	if !severity.Valid() {
		severity = entity.SeverityInfo
	}
	r := entity.Record{
		ID:         util.GenerateTimeID(now),
		Title:      in.Title,
		Message:    in.Message,
		Severity:   severity,
		CreatedAt:  now,
		Link:       in.Link,
		DocumentID: in.DocumentID,
	}

	s.mu.Lock()
	s.prependLocked(r)
	s.mu.Unlock()

	s.commit()
	return r
}

func (s *feedServiceImpl) Merge(msg event.Message) (entity.Record, bool) {
	createdAt := msg.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	id := string(msg.ID)
	if id == "" {
		id = util.GenerateTimeID(createdAt)
	}
	r := entity.Record{
		ID:         id,
		Title:      catalog.Title(msg.Type),
		Message:    msg.Content,
		Severity:   catalog.SeverityOf(msg.Type),
		CreatedAt:  createdAt,
		Read:       msg.Read,
		Link:       catalog.Link(msg.EntityType, msg.EntityID),
		DocumentID: msg.EntityID,
	}

	s.mu.Lock()
	for _, existing := range s.records {
		if existing.ID == r.ID {
			s.mu.Unlock()
			return existing, false
		}
	}
	s.prependLocked(r)
	s.mu.Unlock()

	s.commit()
	return r, true
}

func (s *feedServiceImpl) prependLocked(r entity.Record) {
	records := make([]entity.Record, 0, len(s.records)+1)
	records = append(records, r)
	records = append(records, s.records...)
	if len(records) > s.maxRecords {
		records = records[:s.maxRecords]
	}
	s.records = records
}

func (s *feedServiceImpl) MarkAsRead(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.records {
		if s.records[i].ID == id {
			found = true
			s.records[i].Read = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.commit()
	}
	return found
}

func (s *feedServiceImpl) MarkAllAsRead() {
	s.mu.Lock()
	for i := range s.records {
		s.records[i].Read = true
	}
	s.mu.Unlock()
	s.commit()
}

func (s *feedServiceImpl) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	s.commit()
}

func (s *feedServiceImpl) List() []entity.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Record, len(s.records))
	copy(out, s.records)
	return out
}

// UnreadCount 每次现算，不单独缓存
func (s *feedServiceImpl) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if !r.Read {
			n++
		}
	}
	return n
}

func (s *feedServiceImpl) Subscribe(fn func()) func() {
	return s.observers.Subscribe(fn)
}

// commit 先整体落盘再通知订阅方；落盘失败只记日志，内存状态照常生效
func (s *feedServiceImpl) commit() {
	s.persist()
	s.observers.Notify()
}

func (s *feedServiceImpl) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	repo := s.repo
	snapshot := make([]entity.Record, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := repo.Save(ctx, snapshot); err != nil {
		zlog.Error("persist notifications failed", zap.Error(err))
	}
}
