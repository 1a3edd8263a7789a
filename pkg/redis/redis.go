package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNil key 不存在
var ErrNil = redis.Nil

var errNotConnected = errors.New("redis not connected")

// Client 对 go-redis 的薄封装，storage 与 pulse 两处共用同一个连接
type Client struct {
	rdb redis.UniversalClient
}

// Options 连接参数
type Options struct {
	Addrs        []string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// New 创建客户端；多地址时走集群模式
func New(opts Options) *Client {
	return Wrap(redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        opts.Addrs,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	}))
}

// Wrap 包装已有客户端（测试时可注入）
func Wrap(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Raw 获取原始 Redis 客户端（高级用法）
func (c *Client) Raw() redis.UniversalClient {
	return c.rdb
}

func (c *Client) check() error {
	if c == nil || c.rdb == nil {
		return errNotConnected
	}
	return nil
}

// ==================== String 操作 ====================

// Get 获取字符串值
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	return c.rdb.Get(ctx, key).Result()
}

// Set 设置字符串值
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Del 删除 key
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.rdb.Del(ctx, keys...).Result()
}

// ==================== Pub/Sub ====================

// Publish 发布消息
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe 订阅频道，调用方负责 Close 返回的 PubSub
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	ps := c.rdb.Subscribe(ctx, channels...)
	// 等待订阅确认，确保之后发布的消息不会丢
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}
