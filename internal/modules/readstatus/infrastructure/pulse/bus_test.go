package pulse

import (
	"context"
	"testing"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusBroadcast(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got1 := make(chan entity.Pulse, 1)
	got2 := make(chan entity.Pulse, 1)
	go bus.Subscribe(ctx, func(p entity.Pulse) { got1 <- p })
	go bus.Subscribe(ctx, func(p entity.Pulse) { got2 <- p })

	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subs) == 2
	}, time.Second, 5*time.Millisecond)

	p := entity.Pulse{DocumentID: 5, DocumentType: entity.IncomingInternal, IsRead: true, Timestamp: 1, Origin: "a"}
	require.NoError(t, bus.Publish(ctx, p))

	assert.Equal(t, p, <-got1)
	assert.Equal(t, p, <-got2)
}

func TestMemoryBusCloseEndsSubscribe(t *testing.T) {
	bus := NewMemoryBus()
	done := make(chan error, 1)
	go func() { done <- bus.Subscribe(context.Background(), func(entity.Pulse) {}) }()

	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subs) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after close")
	}
	assert.NoError(t, bus.Publish(context.Background(), entity.Pulse{}))
}

type recordingPublisher struct {
	msgs []mq.Message
}

func (r *recordingPublisher) Publish(_ context.Context, msg mq.Message) (mq.PublishResult, error) {
	r.msgs = append(r.msgs, msg)
	return mq.PublishResult{}, nil
}

func (r *recordingPublisher) Close() error { return nil }

type replayConsumer struct {
	msgs []mq.Message
}

func (c *replayConsumer) Run(ctx context.Context, h mq.Handler) error {
	for _, m := range c.msgs {
		_ = h.Handle(ctx, m)
	}
	return nil
}

func (c *replayConsumer) Close() error { return nil }

func TestKafkaBusRoundTrip(t *testing.T) {
	pub := &recordingPublisher{}
	bus := NewKafkaBus(pub, nil, "qlvb.read-status")

	p := entity.Pulse{DocumentID: 9, DocumentType: entity.OutgoingExternal, IsRead: false, Timestamp: 42, Origin: "proc-1"}
	require.NoError(t, bus.Publish(context.Background(), p))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "qlvb.read-status", pub.msgs[0].Topic)
	assert.Equal(t, "OUTGOING_EXTERNAL:9", string(pub.msgs[0].Key))
	assert.Equal(t, "proc-1", pub.msgs[0].Headers["origin"])

	consumer := &replayConsumer{msgs: []mq.Message{{Value: []byte("not json")}, pub.msgs[0]}}
	rbus := NewKafkaBus(pub, consumer, "qlvb.read-status")

	var got []entity.Pulse
	require.NoError(t, rbus.Subscribe(context.Background(), func(p entity.Pulse) { got = append(got, p) }))
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}
