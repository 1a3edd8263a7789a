package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingService 只实现未读数相关方法，其余走嵌入的 nil 接口
type countingService struct {
	service.ReadStatusService
	mu     sync.Mutex
	loaded []entity.DocumentType
}

func (c *countingService) LoadUnreadCount(_ context.Context, t entity.DocumentType) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = append(c.loaded, t)
	if t == entity.OutgoingExternal {
		return 0, errors.New("backend down")
	}
	return 1, nil
}

func TestReconcileOnceVisitsEveryType(t *testing.T) {
	svc := &countingService{}
	r := NewReconciler(svc, "", nil)

	r.ReconcileOnce()
	assert.ElementsMatch(t, entity.DocumentTypes, svc.loaded)
}

func TestReconcileSkippedWhenInactive(t *testing.T) {
	svc := &countingService{}
	r := NewReconciler(svc, "", func() bool { return false })

	r.ReconcileOnce()
	assert.Empty(t, svc.loaded)
}

func TestStartRejectsBadSpec(t *testing.T) {
	r := NewReconciler(&countingService{}, "not a cron", nil)
	require.Error(t, r.Start())
	r.Stop()
}

func TestStartStop(t *testing.T) {
	r := NewReconciler(&countingService{}, "@every 1h", nil)
	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	r.Stop()
	r.Stop()
}
