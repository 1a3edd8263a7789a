package event

import (
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/ws"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

// Toast 弹出提示
type Toast struct {
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Severity entity.Severity `json:"type"`
	Link     string          `json:"link,omitempty"`
}

type Toaster interface {
	Toast(t Toast)
}

// ToasterFunc 让普通函数满足 Toaster
type ToasterFunc func(t Toast)

func (f ToasterFunc) Toast(t Toast) { f(t) }

type toastFrame struct {
	Event string `json:"event"`
	Toast
}

type hubToaster struct {
	hub *ws.Hub
}

// NewHubToaster 通过本地 /ws 广播给所有已连接的界面
func NewHubToaster(hub *ws.Hub) Toaster {
	return &hubToaster{hub: hub}
}

func (t *hubToaster) Toast(toast Toast) {
	if err := t.hub.BroadcastJSON(toastFrame{Event: "toast", Toast: toast}); err != nil {
		zlog.Error("broadcast toast failed", zap.Error(err))
	}
}
