package event

import (
	"context"
	"testing"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/infrastructure/persistence"
	rtevent "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/domain/event"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/infrastructure/transport"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel 只做分发，不连网络
type fakeChannel struct {
	*transport.Dispatcher
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{Dispatcher: transport.NewDispatcher()}
}

func (f *fakeChannel) Connect(context.Context, string) error     { return nil }
func (f *fakeChannel) Disconnect()                               {}
func (f *fakeChannel) IsConnected() bool                         { return true }
func (f *fakeChannel) OnStateChange(func(connected bool)) func() { return func() {} }

type sinkRecorder struct {
	got []rtevent.Message
}

func (s *sinkRecorder) ApplyPushEvent(msg rtevent.Message) { s.got = append(s.got, msg) }

func TestWatcherToastsWithoutCallback(t *testing.T) {
	ch := newFakeChannel()
	var toasts []Toast
	w := NewInternalDocumentWatcher(ch, ToasterFunc(func(t Toast) { toasts = append(toasts, t) }), nil)

	ch.Dispatch(rtevent.Message{Type: rtevent.InternalDocumentSent, Content: "sent", EntityID: 4, EntityType: rtevent.EntityInternalDocument})
	ch.Dispatch(rtevent.Message{Type: rtevent.ExternalDocumentReceived, Content: "ignored"})

	require.Len(t, toasts, 1)
	assert.Equal(t, "Văn bản nội bộ đã được gửi", toasts[0].Title)
	assert.Equal(t, entity.SeveritySuccess, toasts[0].Severity)
	assert.Equal(t, "/van-ban-noi-bo/4", toasts[0].Link)

	w.Close()
	w.Close()
	for _, typ := range rtevent.InternalDocumentTypes {
		assert.Zero(t, ch.Count(typ), typ)
	}
}

func TestWatcherToastsBeforeCallback(t *testing.T) {
	ch := newFakeChannel()
	var order []string
	w := NewInternalDocumentWatcher(ch,
		ToasterFunc(func(Toast) { order = append(order, "toast") }),
		func(rtevent.Message) { order = append(order, "callback") })
	defer w.Close()

	ch.Dispatch(rtevent.Message{Type: rtevent.InternalDocumentRead})
	assert.Equal(t, []string{"toast", "callback"}, order)
}

func TestBindMergesAndForwards(t *testing.T) {
	ch := newFakeChannel()
	feed := service.NewFeedService(context.Background(), persistence.NewFeedRepository(kv.NewMemory(), ""), 0)
	sink := &sinkRecorder{}

	unbind := Bind(ch, feed, sink)

	msg := rtevent.Message{Type: rtevent.InternalDocumentReceived, ID: "42", Content: "New doc", EntityID: 7, EntityType: rtevent.EntityInternalDocument}
	ch.Dispatch(msg)
	ch.Dispatch(msg)

	list := feed.List()
	require.Len(t, list, 1)
	assert.Equal(t, "/van-ban-noi-bo/7", list[0].Link)
	assert.Len(t, sink.got, 2)

	unbind()
	for _, typ := range rtevent.KnownTypes {
		assert.Zero(t, ch.Count(typ))
	}
}
