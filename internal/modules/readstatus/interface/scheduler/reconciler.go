package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSpec      = "@every 1m"
	reconcileTimeout = 30 * time.Second
)

// Reconciler 定时向后端重新拉取各分类的未读数，纠正乐观加减带来的偏差
type Reconciler struct {
	cron    *cron.Cron
	svc     service.ReadStatusService
	spec    string
	active  func() bool
	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

// NewReconciler active 为 nil 时始终执行；一般传入“是否已登录”
func NewReconciler(svc service.ReadStatusService, spec string, active func() bool) *Reconciler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Reconciler{
		// 使用标准5段Cron表达式（不含秒），也支持 @every
		cron:   cron.New(),
		svc:    svc,
		spec:   spec,
		active: active,
	}
}

func (r *Reconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	id, err := r.cron.AddFunc(r.spec, r.ReconcileOnce)
	if err != nil {
		return err
	}
	r.entryID = id
	r.cron.Start()
	r.running = true
	zlog.Info("unread count reconciler started", zap.String("spec", r.spec))
	return nil
}

// Stop 等待正在执行的一轮结束
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cron.Remove(r.entryID)
	r.mu.Unlock()

	<-r.cron.Stop().Done()
}

// ReconcileOnce 逐个分类刷新，单个失败不影响其他分类
func (r *Reconciler) ReconcileOnce() {
	if r.active != nil && !r.active() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	for _, t := range entity.DocumentTypes {
		if _, err := r.svc.LoadUnreadCount(ctx, t); err != nil {
			zlog.Warn("reconcile unread count failed", zap.String("documentType", string(t)), zap.Error(err))
		}
	}
}
