package event

import (
	"sync"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/catalog"
	rtevent "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/repository"
)

// InternalDocumentWatcher 监听内部文书的四类推送：先弹提示，再调用调用方回调
type InternalDocumentWatcher struct {
	ch       repository.PushChannel
	toaster  Toaster
	callback func(rtevent.Message)

	mu  sync.Mutex
	ids map[rtevent.MessageType]rtevent.HandlerID
}

// NewInternalDocumentWatcher callback 可以为 nil
func NewInternalDocumentWatcher(ch repository.PushChannel, toaster Toaster, callback func(rtevent.Message)) *InternalDocumentWatcher {
	w := &InternalDocumentWatcher{
		ch:       ch,
		toaster:  toaster,
		callback: callback,
		ids:      make(map[rtevent.MessageType]rtevent.HandlerID, len(rtevent.InternalDocumentTypes)),
	}
	for _, t := range rtevent.InternalDocumentTypes {
		w.ids[t] = ch.On(t, w.handle)
	}
	return w
}

func (w *InternalDocumentWatcher) handle(msg rtevent.Message) {
	if w.toaster != nil {
		w.toaster.Toast(Toast{
			Title:    catalog.Title(msg.Type),
			Message:  msg.Content,
			Severity: catalog.SeverityOf(msg.Type),
			Link:     catalog.Link(msg.EntityType, msg.EntityID),
		})
	}
	if w.callback != nil {
		w.callback(msg)
	}
}

// Close 注销全部回调，可重复调用
func (w *InternalDocumentWatcher) Close() {
	w.mu.Lock()
	ids := w.ids
	w.ids = nil
	w.mu.Unlock()
	for t, id := range ids {
		w.ch.Off(t, id)
	}
}
