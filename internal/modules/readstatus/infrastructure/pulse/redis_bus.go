package pulse

import (
	"context"
	"encoding/json"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RedisBus 基于 Redis pub/sub，连接由外部持有
type RedisBus struct {
	client  *redis.Client
	channel string
}

var _ repository.PulseBus = (*RedisBus)(nil)

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, p entity.Pulse) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshaling pulse")
	}
	return errors.Wrap(b.client.Publish(ctx, b.channel, data), "publishing pulse")
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(entity.Pulse)) error {
	ps, err := b.client.Subscribe(ctx, b.channel)
	if err != nil {
		return errors.Wrap(err, "subscribing pulse channel")
	}
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var p entity.Pulse
			if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
				zlog.Warn("discard malformed pulse", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			fn(p)
		}
	}
}

// Close 连接归 initial 层管理
func (b *RedisBus) Close() error {
	return nil
}
