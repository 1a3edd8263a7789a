package persistence

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"

	"github.com/pkg/errors"
)

const DefaultKey = "notifications"

type feedRepositoryImpl struct {
	store kv.Store
	key   string
}

// NewFeedRepository 整个列表序列化成一个 JSON 数组存到一个 key 下
func NewFeedRepository(store kv.Store, key string) repository.FeedRepository {
	if key == "" {
		key = DefaultKey
	}
	return &feedRepositoryImpl{store: store, key: key}
}

func (r *feedRepositoryImpl) Load(ctx context.Context) ([]entity.Record, error) {
	data, err := r.store.Get(ctx, r.key)
	if stderrors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", r.key)
	}
	var records []entity.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(repository.ErrCorrupt, err.Error())
	}
	return records, nil
}

func (r *feedRepositoryImpl) Save(ctx context.Context, records []entity.Record) error {
	if records == nil {
		records = []entity.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "marshaling notifications")
	}
	return errors.Wrapf(r.store.Set(ctx, r.key, data), "writing %s", r.key)
}
