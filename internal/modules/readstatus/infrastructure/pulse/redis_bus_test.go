package pulse

import (
	"context"
	"testing"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.New(redis.Options{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewRedisBus(client, "qlvb:read-status-pulse")

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan entity.Pulse, 4)
	subErr := make(chan error, 1)
	go func() {
		subErr <- bus.Subscribe(ctx, func(p entity.Pulse) { got <- p })
	}()

	// 订阅确认之前发布的消息会丢，等频道上出现订阅者
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("qlvb:read-status-pulse")["qlvb:read-status-pulse"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish("qlvb:read-status-pulse", "not json")
	want := entity.Pulse{DocumentID: 5, DocumentType: entity.IncomingExternal, IsRead: true, Timestamp: 1700000000000, Origin: "other"}
	require.NoError(t, bus.Publish(context.Background(), want))

	select {
	case p := <-got:
		assert.Equal(t, want, p)
	case <-time.After(2 * time.Second):
		t.Fatal("pulse not delivered")
	}

	cancel()
	select {
	case err := <-subErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
	assert.NoError(t, bus.Close())
}
