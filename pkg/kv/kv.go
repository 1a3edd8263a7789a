// Package kv 是浏览器 localStorage 的替代：一个最简单的持久化键值存储抽象。
// 通知列表的序列化快照、跨进程已读脉冲、登录 token 都存在这里。
package kv

import (
	"context"
	"errors"
)

// ErrNotFound key 不存在
var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

type prefixed struct {
	Store
	prefix string
}

// WithPrefix 给所有 key 加命名空间前缀（按用户隔离）
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{Store: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Store.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.Store.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.Store.Remove(ctx, p.prefix+key)
}

// Close 前缀视图不拥有底层连接
func (p *prefixed) Close() error {
	return nil
}
