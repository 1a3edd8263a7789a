package pulse

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/mq"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// KafkaBus 通过 topic 广播；consumer 由调用方用每进程独立的 group 创建
type KafkaBus struct {
	pub      mq.Publisher
	consumer mq.Consumer
	topic    string
}

var _ repository.PulseBus = (*KafkaBus)(nil)

func NewKafkaBus(pub mq.Publisher, consumer mq.Consumer, topic string) *KafkaBus {
	return &KafkaBus{pub: pub, consumer: consumer, topic: topic}
}

func (b *KafkaBus) Publish(ctx context.Context, p entity.Pulse) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshaling pulse")
	}
	// 同一文书落同一分区，保证顺序
	_, err = b.pub.Publish(ctx, mq.Message{
		Topic: b.topic,
		Key:   []byte(string(p.DocumentType) + ":" + strconv.FormatInt(p.DocumentID, 10)),
		Value: data,
		Headers: map[string]string{
			"origin": p.Origin,
		},
	})
	return errors.Wrap(err, "publishing pulse")
}

func (b *KafkaBus) Subscribe(ctx context.Context, fn func(entity.Pulse)) error {
	if b.consumer == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.consumer.Run(ctx, mq.HandlerFunc(func(_ context.Context, msg mq.Message) error {
		var p entity.Pulse
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			zlog.Warn("discard malformed pulse", zap.String("topic", msg.Topic), zap.Error(err))
			return err
		}
		fn(p)
		return nil
	}))
}

func (b *KafkaBus) Close() error {
	var first error
	if b.consumer != nil {
		first = b.consumer.Close()
	}
	if b.pub != nil {
		if err := b.pub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
