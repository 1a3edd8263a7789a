package gormkv

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry 键值表
type Entry struct {
	Key       string    `gorm:"column:k;type:varchar(191);primaryKey"`
	Value     []byte    `gorm:"column:v;type:mediumblob"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Entry) TableName() string {
	return "notify_kv_entry"
}

type store struct {
	db *gorm.DB
}

// New 基于 gorm 的存储（MySQL），会自动迁移键值表
func New(db *gorm.DB) (kv.Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "migrate kv table")
	}
	return &store{db: db}, nil
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("k = ?", key).Take(&e).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.Wrapf(err, "gorm get %s", key)
	}
	return e.Value, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v", "updated_at"}),
	}).Create(&e).Error
	return errors.Wrapf(err, "gorm set %s", key)
}

func (s *store) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("k = ?", key).Delete(&Entry{}).Error
	return errors.Wrapf(err, "gorm delete %s", key)
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
