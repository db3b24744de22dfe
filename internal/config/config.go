package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	SSH         SSHConfig         `mapstructure:"ssh"`
	Log         logger.Config     `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Backup      BackupConfig      `mapstructure:"backup"`
	// DeviceDefaults 按 OS 变体加载的交互参数（提示符、分页、enable）
	DeviceDefaults map[string]PlatformDefaultsConfig `mapstructure:"device_defaults"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SimulateEnable 同时启动 simulate/simulate.yaml 中的模拟设备
	SimulateEnable bool `mapstructure:"simulate_enable"`
}

// SSHConfig 会话超时与空闲回收
type SSHConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogLevel gorm 日志级别：silent/error/warn/info
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig 凭据存储所在的 Redis
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CredentialsConfig 凭据来源：redis 或 static
type CredentialsConfig struct {
	Backend string `mapstructure:"backend"`
	// Static 按身份标识配置的凭据，键 "default" 作为兜底
	Static map[string]StaticCredential `mapstructure:"static"`
	// TTL Redis 中凭据的过期时间，按请求续期
	TTL time.Duration `mapstructure:"ttl"`
}

// StaticCredential 静态凭据
type StaticCredential struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Privileged enable 密码，可为空
	Privileged string `mapstructure:"privileged"`
}

// BackupConfig 配置备份
type BackupConfig struct {
	// StorageBackend 默认存储后端：local | minio
	StorageBackend string            `mapstructure:"storage_backend"`
	Prefix         string            `mapstructure:"prefix"`
	Local          LocalBackupConfig `mapstructure:"local"`
	Minio          MinioConfig       `mapstructure:"minio"`
}

// LocalBackupConfig 本地存储配置
type LocalBackupConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// MinioConfig 对象存储配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// PlatformDefaultsConfig 平台默认交互配置
type PlatformDefaultsConfig struct {
	PromptSuffixes    []string `mapstructure:"prompt_suffixes"`
	DisablePagingCmds []string `mapstructure:"disable_paging_cmds"`
	// EnableRequired 登录后需要 enable 才能进入特权模式
	EnableRequired bool `mapstructure:"enable_required"`
}

var globalConfig *Config

// Load 加载配置文件；configPath 为空时按默认目录查找 config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("NETCONFIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Backup.Minio.SecretKey = expandEnv(cfg.Backup.Minio.SecretKey)
	for k, c := range cfg.Credentials.Static {
		c.Password = expandEnv(c.Password)
		c.Privileged = expandEnv(c.Privileged)
		cfg.Credentials.Static[k] = c
	}

	globalConfig = &cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.simulate_enable", false)

	v.SetDefault("ssh.connect_timeout", 15*time.Second)
	v.SetDefault("ssh.command_timeout", 60*time.Second)
	v.SetDefault("ssh.probe_timeout", 3*time.Second)
	v.SetDefault("ssh.idle_timeout", 15*time.Minute)
	v.SetDefault("ssh.cleanup_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "./logs/netconfig.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("database.sqlite.path", "./data/netconfig.db")
	v.SetDefault("database.sqlite.log_level", "warn")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("credentials.backend", "redis")
	v.SetDefault("credentials.ttl", 30*time.Minute)

	v.SetDefault("backup.storage_backend", "local")
	v.SetDefault("backup.prefix", "configs")
	v.SetDefault("backup.local.base_dir", "./data/backups")
	v.SetDefault("backup.local.mkdir_if_missing", true)
}

// expandEnv 支持 "${VAR}" 形式的密码与密钥
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		if value := os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")); value != "" {
			return value
		}
	}
	return s
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// GetServerAddr 获取服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Platform 返回某个 OS 变体的交互参数，未配置时为零值
func (c *Config) Platform(variant string) PlatformDefaultsConfig {
	if p, ok := c.DeviceDefaults[variant]; ok {
		return p
	}
	return c.DeviceDefaults["default"]
}
