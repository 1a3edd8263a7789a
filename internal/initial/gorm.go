package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenMysql 只在 storage driver = mysql 时使用
func OpenMysql(conf *config.Config) (*gorm.DB, error) {
	dbName := conf.MysqlConfig.DatabaseName
	if dbName == "" {
		dbName = "qlvb_notify"
	}
	port := conf.MysqlConfig.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User, conf.MysqlConfig.Password, conf.MysqlConfig.Host, port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return db, nil
}
