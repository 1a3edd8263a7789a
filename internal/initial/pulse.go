package initial

import (
	"strings"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/mq/kafka"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/pulse"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenPulseBus 按 pulseConfig.driver 选择跨进程脉冲通道；none 返回 nil
func OpenPulseBus(conf *config.Config, rc *redis.Client, origin string) (repository.PulseBus, error) {
	driver := strings.ToLower(strings.TrimSpace(conf.PulseConfig.Driver))
	zlog.Info("pulse driver", zap.String("driver", driver))

	switch driver {
	case "none":
		return nil, nil
	case "", "memory":
		return pulse.NewMemoryBus(), nil
	case "redis":
		if rc == nil {
			return nil, errors.New("pulse driver redis requires [redisConfig].host")
		}
		return pulse.NewRedisBus(rc, conf.PulseConfig.Channel), nil
	case "kafka":
		return openKafkaBus(conf, origin)
	default:
		return nil, errors.Errorf("unknown pulse driver %q", driver)
	}
}

func openKafkaBus(conf *config.Config, origin string) (repository.PulseBus, error) {
	kc := conf.KafkaConfig
	topic := strings.TrimSpace(kc.PulseTopic)
	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID}, topic, kc.Partitions, kc.Replication); err != nil {
		return nil, errors.Wrap(err, "ensure pulse topic")
	}
	pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{Brokers: kc.Brokers, ClientID: kc.ClientID})
	if err != nil {
		return nil, errors.Wrap(err, "kafka publisher")
	}
	// 每个进程独立 group，保证每个实例都能收到全部脉冲
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  kc.Brokers,
		GroupID:  conf.AppName + "-pulse-" + origin,
		Topics:   []string{topic},
		ClientID: kc.ClientID,
	})
	if err != nil {
		_ = pub.Close()
		return nil, errors.Wrap(err, "kafka consumer")
	}
	return pulse.NewKafkaBus(pub, consumer, topic), nil
}
