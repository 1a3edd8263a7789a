package config

import (
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	defaultConfigPath = "configs/config_local.toml"
	configPathEnv     = "QLVB_NOTIFY_CONFIG"
)

// MainConfig 本地 API 监听配置
type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	TLS      bool   `toml:"tls"`
	CertFile string `toml:"certFile"`
	KeyFile  string `toml:"keyFile"`
}

// BackendConfig 文档管理后端（REST + 推送通道）
type BackendConfig struct {
	BaseURL        string `toml:"baseURL"`
	WsURL          string `toml:"wsURL"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
	BatchEndpoint  bool   `toml:"batchEndpoint"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
	Console    bool   `toml:"console"`
}

// StorageConfig 选择持久化驱动：memory | sqlite | redis | mysql
type StorageConfig struct {
	Driver           string `toml:"driver"`
	NotificationsKey string `toml:"notificationsKey"`
	MaxRecords       int    `toml:"maxRecords"`
}

type SqliteConfig struct {
	Path string `toml:"path"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type KafkaConfig struct {
	Brokers     []string `toml:"brokers"`
	ClientID    string   `toml:"clientID"`
	PulseTopic  string   `toml:"pulseTopic"`
	Partitions  int32    `toml:"partitions"`
	Replication int16    `toml:"replication"`
}

// PulseConfig 跨进程已读脉冲：memory | redis | kafka | none
type PulseConfig struct {
	Driver   string `toml:"driver"`
	Channel  string `toml:"channel"`
	Key      string `toml:"key"`
	TTLMilli int    `toml:"ttlMilli"`
}

// SyncConfig 已读缓存相关参数
type SyncConfig struct {
	BatchCooldownMilli int    `toml:"batchCooldownMilli"`
	ReconcileSpec      string `toml:"reconcileSpec"`
	PingPeriodSeconds  int    `toml:"pingPeriodSeconds"`
}

type KeyringConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"serviceName"`
	FileDir     string `toml:"fileDir"`
	TokenKey    string `toml:"tokenKey"`
}

type Config struct {
	MainConfig    `toml:"mainConfig"`
	BackendConfig `toml:"backendConfig"`
	JwtConfig     `toml:"jwtConfig"`
	LogConfig     `toml:"logConfig"`
	StorageConfig `toml:"storageConfig"`
	SqliteConfig  `toml:"sqliteConfig"`
	MysqlConfig   `toml:"mysqlConfig"`
	RedisConfig   `toml:"redisConfig"`
	KafkaConfig   `toml:"kafkaConfig"`
	PulseConfig   `toml:"pulseConfig"`
	SyncConfig    `toml:"syncConfig"`
	KeyringConfig `toml:"keyringConfig"`
}

// Default 未配置项的默认值
func Default() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName: "qlvb-notify",
			Host:    "127.0.0.1",
			Port:    8090,
		},
		BackendConfig: BackendConfig{
			TimeoutSeconds: 15,
		},
		JwtConfig: JwtConfig{
			ExpireHours: 24,
			Issuer:      "qlvb-notify",
		},
		LogConfig: LogConfig{
			Level: "info",
		},
		StorageConfig: StorageConfig{
			Driver:           "sqlite",
			NotificationsKey: "notifications",
			MaxRecords:       200,
		},
		SqliteConfig: SqliteConfig{
			Path: "data/notify.db",
		},
		RedisConfig: RedisConfig{
			Port: 6379,
		},
		KafkaConfig: KafkaConfig{
			PulseTopic:  "qlvb.read-status.pulse",
			Partitions:  1,
			Replication: 1,
		},
		PulseConfig: PulseConfig{
			Driver:   "memory",
			Channel:  "qlvb:read-status-pulse",
			Key:      "read_status_pulse",
			TTLMilli: 100,
		},
		SyncConfig: SyncConfig{
			BatchCooldownMilli: 1000,
			ReconcileSpec:      "@every 1m",
			PingPeriodSeconds:  30,
		},
		KeyringConfig: KeyringConfig{
			ServiceName: "qlvb-notify",
			TokenKey:    "access_token",
		},
	}
}

// Load 读取 toml 文件，缺省字段保留默认值
func Load(path string) (*Config, error) {
	conf := Default()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return conf, errors.Wrapf(err, "decode config %s", path)
	}
	return conf, nil
}

func (c *Config) BackendTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) BatchCooldown() time.Duration {
	return time.Duration(c.BatchCooldownMilli) * time.Millisecond
}

func (c *Config) PulseTTL() time.Duration {
	if c.TTLMilli <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.TTLMilli) * time.Millisecond
}

func (c *Config) PingPeriod() time.Duration {
	if c.PingPeriodSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PingPeriodSeconds) * time.Second
}

var (
	config   *Config
	loadOnce sync.Once
	loadErr  error
)

// GetConfig 进程级配置；路径可用环境变量 QLVB_NOTIFY_CONFIG 覆盖
func GetConfig() *Config {
	loadOnce.Do(func() {
		path := os.Getenv(configPathEnv)
		if path == "" {
			path = defaultConfigPath
		}
		config, loadErr = Load(path)
	})
	return config
}

// LoadError 返回 GetConfig 加载配置文件时的错误（文件缺失时使用默认配置）
func LoadError() error {
	GetConfig()
	return loadErr
}
