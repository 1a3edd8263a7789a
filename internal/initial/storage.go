package initial

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv/gormkv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv/rediskv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv/sqlitekv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenStorage 按 storageConfig.driver 选择键值存储
func OpenStorage(conf *config.Config, rc *redis.Client) (kv.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(conf.StorageConfig.Driver))
	zlog.Info("storage driver", zap.String("driver", driver))

	switch driver {
	case "memory":
		return kv.NewMemory(), nil
	case "", "sqlite":
		path := conf.SqliteConfig.Path
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.Wrapf(err, "create sqlite dir for %s", path)
			}
		}
		st, err := sqlitekv.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "redis":
		if rc == nil {
			return nil, errors.New("storage driver redis requires [redisConfig].host")
		}
		return rediskv.New(rc, false), nil
	case "mysql":
		db, err := OpenMysql(conf)
		if err != nil {
			return nil, err
		}
		return gormkv.New(db)
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}
