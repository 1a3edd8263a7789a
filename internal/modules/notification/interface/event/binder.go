package event

import (
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/application/service"
	rtevent "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

// PushEventSink 已读缓存对推送的反应
type PushEventSink interface {
	ApplyPushEvent(msg rtevent.Message)
}

// Bind 六类推送都并入通知列表，并交给已读缓存；返回的函数注销全部回调
func Bind(ch repository.PushChannel, feed service.FeedService, sink PushEventSink) (unbind func()) {
	type reg struct {
		t  rtevent.MessageType
		id rtevent.HandlerID
	}
	regs := make([]reg, 0, len(rtevent.KnownTypes))
	for _, t := range rtevent.KnownTypes {
		id := ch.On(t, func(msg rtevent.Message) {
			if _, added := feed.Merge(msg); !added {
				zlog.Debug("duplicate push message dropped", zap.String("id", string(msg.ID)), zap.String("type", string(msg.Type)))
			}
			if sink != nil {
				sink.ApplyPushEvent(msg)
			}
		})
		regs = append(regs, reg{t: t, id: id})
	}
	return func() {
		for _, r := range regs {
			ch.Off(r.t, r.id)
		}
		regs = nil
	}
}
