package transport

import (
	"sync"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

type registration struct {
	id event.HandlerID
	h  event.Handler
}

// Dispatcher 按消息类型分发，同类型的回调按注册顺序执行
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   event.HandlerID
	handlers map[event.MessageType][]registration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[event.MessageType][]registration)}
}

func (d *Dispatcher) On(t event.MessageType, h event.Handler) event.HandlerID {
	if h == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.handlers[t] = append(d.handlers[t], registration{id: d.nextID, h: h})
	return d.nextID
}

func (d *Dispatcher) Off(t event.MessageType, id event.HandlerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.handlers[t]
	for i, r := range regs {
		if r.id != id {
			continue
		}
		regs = append(regs[:i:i], regs[i+1:]...)
		if len(regs) == 0 {
			delete(d.handlers, t)
		} else {
			d.handlers[t] = regs
		}
		return
	}
}

// Count 某类型当前注册的回调数
func (d *Dispatcher) Count(t event.MessageType) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[t])
}

// Dispatch 把消息交给该类型的所有回调，返回调用数
func (d *Dispatcher) Dispatch(msg event.Message) int {
	d.mu.RLock()
	regs := make([]registration, len(d.handlers[msg.Type]))
	copy(regs, d.handlers[msg.Type])
	d.mu.RUnlock()

	if len(regs) == 0 {
		zlog.Debug("push message without handler", zap.String("type", string(msg.Type)), zap.String("id", string(msg.ID)))
		return 0
	}
	for _, r := range regs {
		invoke(r.h, msg)
	}
	return len(regs)
}

func invoke(h event.Handler, msg event.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Error("push handler panic",
				zap.String("type", string(msg.Type)),
				zap.Any("recover", rec),
			)
		}
	}()
	h(msg)
}
