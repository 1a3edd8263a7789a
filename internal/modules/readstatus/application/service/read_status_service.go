package service

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	rtevent "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/observer"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchCooldown = time.Second
	DefaultPulseTTL      = 100 * time.Millisecond
	DefaultPulseKey      = "document_read_status_update"

	publishTimeout = 3 * time.Second
	refreshTimeout = 10 * time.Second
)

// ReadStatusService 文书已读状态缓存
type ReadStatusService interface {
	// GetReadStatus known=false 表示从未加载过
	GetReadStatus(documentID int64, t entity.DocumentType) (isRead bool, known bool)
	LoadBatchReadStatus(ctx context.Context, documentIDs []int64, t entity.DocumentType) error
	MarkAsRead(ctx context.Context, documentID int64, t entity.DocumentType) error
	MarkAsUnread(ctx context.Context, documentID int64, t entity.DocumentType) error
	ToggleReadStatus(ctx context.Context, documentID int64, t entity.DocumentType) (bool, error)
	LoadUnreadCount(ctx context.Context, t entity.DocumentType) (int, error)
	GetUnreadCount(t entity.DocumentType) int
	ClearAllReadStatus()
	Subscribe(fn func()) (unsubscribe func())

	UnreadDocumentIDs(ctx context.Context, t entity.DocumentType) ([]int64, error)
	DocumentReaders(ctx context.Context, documentID int64, t entity.DocumentType) ([]entity.Reader, error)
	ReadStatistics(ctx context.Context, documentID int64, t entity.DocumentType) (*entity.Statistics, error)

	ApplyPulse(p entity.Pulse) bool
	ApplyPushEvent(msg rtevent.Message)
	// RunPulseListener 阻塞消费其他进程的脉冲，直到 ctx 结束或服务关闭
	RunPulseListener(ctx context.Context) error
	Origin() string
	Close()
}

// Options 可选参数，零值使用默认
type Options struct {
	BatchCooldown time.Duration
	PulseTTL      time.Duration
	PulseKey      string
	// UseBatchEndpoint 后端提供 batch-status 时先走一次批量请求
	UseBatchEndpoint bool
	// Origin 本进程标识，缺省随机生成
	Origin string
}

type batchLoad struct {
	done chan struct{}
	// err 在 done 关闭前写入
	err  error
}

type readStatusServiceImpl struct {
	api   repository.ReadStatusAPI
	store kv.Store
	bus   repository.PulseBus
	opts  Options

	mu       sync.Mutex
	statuses map[entity.Key]bool
	unread   map[entity.DocumentType]int
	inflight map[string]*batchLoad

	observers observer.Registry

	ctx    context.Context
	cancel context.CancelFunc
	taskMu sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewReadStatusService store 与 bus 都可以为 nil，此时不发跨进程脉冲
func NewReadStatusService(api repository.ReadStatusAPI, store kv.Store, bus repository.PulseBus, opts Options) ReadStatusService {
	if opts.BatchCooldown <= 0 {
		opts.BatchCooldown = DefaultBatchCooldown
	}
	if opts.PulseTTL <= 0 {
		opts.PulseTTL = DefaultPulseTTL
	}
	if opts.PulseKey == "" {
		opts.PulseKey = DefaultPulseKey
	}
	if opts.Origin == "" {
		opts.Origin = util.GenerateUUID()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &readStatusServiceImpl{
		api:      api,
		store:    store,
		bus:      bus,
		opts:     opts,
		statuses: make(map[entity.Key]bool),
		unread:   make(map[entity.DocumentType]int),
		inflight: make(map[string]*batchLoad),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *readStatusServiceImpl) Origin() string {
	return s.opts.Origin
}

func (s *readStatusServiceImpl) GetReadStatus(documentID int64, t entity.DocumentType) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.statuses[entity.Key{DocumentID: documentID, DocumentType: t}]
	return v, ok
}

// LoadBatchReadStatus 同一批 id 并发调用只发一轮请求；完成后冷却期内再调用直接返回。
// 加载在服务生命周期内执行，调用方的 ctx 只决定自己等多久
func (s *readStatusServiceImpl) LoadBatchReadStatus(ctx context.Context, documentIDs []int64, t entity.DocumentType) error {
	ids := uniqueSorted(documentIDs)
	if len(ids) == 0 {
		return nil
	}
	key := batchKey(ids, t)

	s.mu.Lock()
	l, ok := s.inflight[key]
	if !ok {
		l = &batchLoad{done: make(chan struct{})}
		s.inflight[key] = l
		missing := make([]int64, 0, len(ids))
		for _, id := range ids {
			if _, ok := s.statuses[entity.Key{DocumentID: id, DocumentType: t}]; !ok {
				missing = append(missing, id)
			}
		}
		s.mu.Unlock()
		if !s.spawn(func() { s.runBatch(key, l, missing, t) }) {
			s.finishBatch(key, l, nil, t, context.Canceled)
		}
	} else {
		s.mu.Unlock()
	}

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *readStatusServiceImpl) runBatch(key string, l *batchLoad, missing []int64, t entity.DocumentType) {
	results := s.fetchStatuses(s.ctx, missing, t)
	s.finishBatch(key, l, results, t, s.ctx.Err())
}

// finishBatch 写入结果并唤醒等待方；未完整加载（服务已关闭）时立即释放 key，不进入冷却
func (s *readStatusServiceImpl) finishBatch(key string, l *batchLoad, results map[int64]bool, t entity.DocumentType, err error) {
	s.mu.Lock()
	for id, v := range results {
		s.statuses[entity.Key{DocumentID: id, DocumentType: t}] = v
	}
	if err != nil && s.inflight[key] == l {
		delete(s.inflight, key)
	}
	l.err = err
	s.mu.Unlock()
	close(l.done)

	if err == nil {
		s.after(s.opts.BatchCooldown, false, func() {
			s.mu.Lock()
			if s.inflight[key] == l {
				delete(s.inflight, key)
			}
			s.mu.Unlock()
		})
	}
	if len(results) > 0 {
		s.observers.Notify()
	}
}

func (s *readStatusServiceImpl) fetchStatuses(ctx context.Context, ids []int64, t entity.DocumentType) map[int64]bool {
	results := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return results
	}

	if s.opts.UseBatchEndpoint {
		m, err := s.api.BatchStatus(ctx, ids, t)
		if err == nil {
			for _, id := range ids {
				results[id] = m[id]
			}
			return results
		}
		zlog.Warn("batch status failed, falling back to per document",
			zap.String("documentType", string(t)), zap.Int("count", len(ids)), zap.Error(err))
	}

	// 单个文档失败按未读缓存，不影响整批，所以每个任务都返回 nil
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			v, err := s.api.IsRead(ctx, id, t)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				zlog.Warn("load read status failed", zap.Int64("documentId", id),
					zap.String("documentType", string(t)), zap.Error(err))
				v = false
			}
			mu.Lock()
			results[id] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *readStatusServiceImpl) MarkAsRead(ctx context.Context, documentID int64, t entity.DocumentType) error {
	return s.mark(ctx, documentID, t, true)
}

func (s *readStatusServiceImpl) MarkAsUnread(ctx context.Context, documentID int64, t entity.DocumentType) error {
	return s.mark(ctx, documentID, t, false)
}

func (s *readStatusServiceImpl) mark(ctx context.Context, documentID int64, t entity.DocumentType, isRead bool) error {
	var err error
	if isRead {
		err = s.api.MarkAsRead(ctx, documentID, t)
	} else {
		err = s.api.MarkAsUnread(ctx, documentID, t)
	}
	if err != nil {
		return errors.Wrapf(err, "marking document %d (%s) read=%t", documentID, t, isRead)
	}

	s.mu.Lock()
	k := entity.Key{DocumentID: documentID, DocumentType: t}
	prev, known := s.statuses[k]
	s.statuses[k] = isRead
	if !known || prev != isRead {
		if isRead {
			if s.unread[t] > 0 {
				s.unread[t]--
			}
		} else {
			s.unread[t]++
		}
	}
	s.mu.Unlock()

	s.observers.Notify()
	s.emitPulse(entity.Pulse{
		DocumentID:   documentID,
		DocumentType: t,
		IsRead:       isRead,
		Timestamp:    time.Now().UnixMilli(),
		Origin:       s.opts.Origin,
	})
	return nil
}

// emitPulse 写临时 key 并广播，TTL 后删 key；失败只记日志
func (s *readStatusServiceImpl) emitPulse(p entity.Pulse) {
	data, err := json.Marshal(p)
	if err != nil {
		zlog.Error("marshal pulse failed", zap.Error(err))
		return
	}

	if s.store != nil {
		if err := s.store.Set(s.ctx, s.opts.PulseKey, data); err != nil {
			zlog.Warn("write pulse key failed", zap.String("key", s.opts.PulseKey), zap.Error(err))
		} else {
			s.after(s.opts.PulseTTL, true, func() {
				if err := s.store.Remove(context.Background(), s.opts.PulseKey); err != nil {
					zlog.Warn("remove pulse key failed", zap.String("key", s.opts.PulseKey), zap.Error(err))
				}
			})
		}
	}

	if s.bus != nil {
		ctx, cancel := context.WithTimeout(s.ctx, publishTimeout)
		defer cancel()
		if err := s.bus.Publish(ctx, p); err != nil {
			zlog.Warn("publish pulse failed", zap.Int64("documentId", p.DocumentID), zap.Error(err))
		}
	}
}

// ToggleReadStatus 未知状态按未读处理
func (s *readStatusServiceImpl) ToggleReadStatus(ctx context.Context, documentID int64, t entity.DocumentType) (bool, error) {
	isRead, known := s.GetReadStatus(documentID, t)
	next := !(known && isRead)
	if err := s.mark(ctx, documentID, t, next); err != nil {
		return isRead, err
	}
	return next, nil
}

func (s *readStatusServiceImpl) LoadUnreadCount(ctx context.Context, t entity.DocumentType) (int, error) {
	n, err := s.api.UnreadCount(ctx, t)
	if err != nil {
		return 0, errors.Wrapf(err, "loading unread count of %s", t)
	}
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	changed := s.unread[t] != n
	s.unread[t] = n
	s.mu.Unlock()
	if changed {
		s.observers.Notify()
	}
	return n, nil
}

func (s *readStatusServiceImpl) GetUnreadCount(t entity.DocumentType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[t]
}

// ClearAllReadStatus 登出时调用
func (s *readStatusServiceImpl) ClearAllReadStatus() {
	s.mu.Lock()
	s.statuses = make(map[entity.Key]bool)
	s.unread = make(map[entity.DocumentType]int)
	s.inflight = make(map[string]*batchLoad)
	s.mu.Unlock()
	s.observers.Notify()
}

func (s *readStatusServiceImpl) Subscribe(fn func()) func() {
	return s.observers.Subscribe(fn)
}

// UnreadDocumentIDs 后端返回的 id 一律记为未读
func (s *readStatusServiceImpl) UnreadDocumentIDs(ctx context.Context, t entity.DocumentType) ([]int64, error) {
	ids, err := s.api.UnreadIDs(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "loading unread ids of %s", t)
	}
	changed := false
	s.mu.Lock()
	for _, id := range ids {
		k := entity.Key{DocumentID: id, DocumentType: t}
		if v, ok := s.statuses[k]; !ok || v {
			s.statuses[k] = false
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.observers.Notify()
	}
	return ids, nil
}

func (s *readStatusServiceImpl) DocumentReaders(ctx context.Context, documentID int64, t entity.DocumentType) ([]entity.Reader, error) {
	readers, err := s.api.Readers(ctx, documentID, t)
	return readers, errors.Wrapf(err, "loading readers of document %d", documentID)
}

func (s *readStatusServiceImpl) ReadStatistics(ctx context.Context, documentID int64, t entity.DocumentType) (*entity.Statistics, error) {
	st, err := s.api.Statistics(ctx, documentID, t)
	return st, errors.Wrapf(err, "loading statistics of document %d", documentID)
}

// ApplyPulse 只处理其他进程发出的脉冲，自己发的忽略
func (s *readStatusServiceImpl) ApplyPulse(p entity.Pulse) bool {
	if p.Origin == s.opts.Origin || !p.DocumentType.Valid() || p.DocumentID <= 0 {
		return false
	}
	s.mu.Lock()
	s.statuses[entity.Key{DocumentID: p.DocumentID, DocumentType: p.DocumentType}] = p.IsRead
	s.mu.Unlock()

	s.observers.Notify()
	s.refreshLater(p.DocumentType)
	return true
}

// ApplyPushEvent 收到新文书：标记未读并异步刷新对应分类的未读数
func (s *readStatusServiceImpl) ApplyPushEvent(msg rtevent.Message) {
	if !msg.Type.IsReceived() {
		return
	}
	t := entity.IncomingExternal
	if msg.Type.IsInternal() {
		t = entity.IncomingInternal
	}
	if msg.EntityID > 0 {
		s.mu.Lock()
		s.statuses[entity.Key{DocumentID: msg.EntityID, DocumentType: t}] = false
		s.mu.Unlock()
		s.observers.Notify()
	}
	s.refreshLater(t)
}

func (s *readStatusServiceImpl) refreshLater(t entity.DocumentType) {
	s.after(0, false, func() {
		ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
		defer cancel()
		if _, err := s.LoadUnreadCount(ctx, t); err != nil && s.ctx.Err() == nil {
			zlog.Warn("refresh unread count failed", zap.String("documentType", string(t)), zap.Error(err))
		}
	})
}

func (s *readStatusServiceImpl) RunPulseListener(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	err := s.bus.Subscribe(ctx, func(p entity.Pulse) { s.ApplyPulse(p) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close 取消所有后台任务；待删除的脉冲 key 立即删除
func (s *readStatusServiceImpl) Close() {
	s.taskMu.Lock()
	s.closed = true
	s.taskMu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// after 延迟执行的后台任务，生命周期跟随服务；flush=true 的任务在关闭时立即执行
func (s *readStatusServiceImpl) after(d time.Duration, flush bool, fn func()) {
	started := s.spawn(func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn()
		case <-s.ctx.Done():
			if flush {
				fn()
			}
		}
	})
	if !started && flush {
		fn()
	}
}

// spawn 启动一个随服务关闭而等待的后台任务；服务已关闭时返回 false
func (s *readStatusServiceImpl) spawn(fn func()) bool {
	s.taskMu.Lock()
	if s.closed {
		s.taskMu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.taskMu.Unlock()

	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func batchKey(ids []int64, t entity.DocumentType) string {
	var b strings.Builder
	b.WriteString(string(t))
	b.WriteByte('-')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
