package sqlitekv

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	k          TEXT PRIMARY KEY,
	v          BLOB NOT NULL,
	updated_at DATETIME NOT NULL
)`

// Store 本地 SQLite 文件存储，适合单机运行的同步代理
type Store struct {
	db *sqlx.DB
}

// Open 打开（或创建）dbPath 指向的数据库并建表；":memory:" 用于测试
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite db")
	}
	// 单连接，避免 :memory: 库在多连接下各自为政
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling WAL mode")
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating kv table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.GetContext(ctx, &v, "SELECT v FROM kv_entries WHERE k = ?", key)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting %s", key)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO kv_entries (k, v, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().UTC(),
	)
	return errors.Wrapf(err, "setting %s", key)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE k = ?", key)
	return errors.Wrapf(err, "removing %s", key)
}

func (s *Store) Close() error {
	return s.db.Close()
}
