package rediskv

import (
	"context"
	stderrors "errors"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"

	"github.com/pkg/errors"
)

type store struct {
	c         *redis.Client
	ownClient bool
}

// New 基于已有 Redis 客户端的存储；ownClient=true 时 Close 会关闭连接
func New(c *redis.Client, ownClient bool) kv.Store {
	return &store{c: c, ownClient: ownClient}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, redis.ErrNil) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return []byte(v), nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	return errors.Wrapf(s.c.Set(ctx, key, value, 0), "redis set %s", key)
}

func (s *store) Remove(ctx context.Context, key string) error {
	_, err := s.c.Del(ctx, key)
	return errors.Wrapf(err, "redis del %s", key)
}

func (s *store) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.c.Close()
}
