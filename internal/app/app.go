package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "github.com/sshcollectorpro/netconfig/addone/device/platforms"
	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/credential"
	"github.com/sshcollectorpro/netconfig/internal/database"
	"github.com/sshcollectorpro/netconfig/internal/inventory"
	"github.com/sshcollectorpro/netconfig/internal/service"
	"github.com/sshcollectorpro/netconfig/internal/session"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// App 服务端与命令行共用的组件
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Inventory *inventory.GormStore
	Resolver  credential.Resolver
	// CredStore 仅 redis 凭据模式下非 nil
	CredStore *credential.RedisResolver
	Registry  *session.Registry
	Devices   *service.DeviceService
	Backups   *service.BackupService

	rdb *redis.Client
}

// New 按配置依次初始化数据库、凭据来源、会话注册表与服务
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{Config: cfg, DB: database.GetDB()}
	a.Inventory = inventory.NewGormStore(a.DB)

	if err := a.initCredentials(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	a.Registry = session.NewRegistry(a.Inventory, a.Resolver, session.NewSSHDialer(cfg), session.Options{
		ConnectTimeout:  cfg.SSH.ConnectTimeout,
		ProbeTimeout:    cfg.SSH.ProbeTimeout,
		IdleTimeout:     cfg.SSH.IdleTimeout,
		CleanupInterval: cfg.SSH.CleanupInterval,
	})
	a.Devices = service.NewDeviceService(a.Inventory, a.Registry)
	a.Backups = service.NewBackupService(a.Devices, service.NewStorageWriter(cfg.Backup), a.DB, cfg.Backup.StorageBackend)
	return a, nil
}

func (a *App) initCredentials(ctx context.Context) error {
	backend := strings.ToLower(strings.TrimSpace(a.Config.Credentials.Backend))
	switch backend {
	case "static":
		a.Resolver = credential.NewStaticResolver(a.Config.Credentials.Static)
		logger.Info("Using static credentials", "identities", len(a.Config.Credentials.Static))
		return nil
	case "", "redis":
		rdb, err := credential.NewRedisClient(ctx, a.Config.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect credential store: %w", err)
		}
		a.rdb = rdb
		a.CredStore = credential.NewRedisResolver(rdb, a.Config.Credentials.TTL)
		a.Resolver = a.CredStore
		logger.Info("Using redis credential store", "addr", a.Config.Redis.Addr(), "ttl", a.Config.Credentials.TTL)
		return nil
	default:
		return fmt.Errorf("unknown credentials backend %q", backend)
	}
}

// Health 数据库与凭据存储的连通性
func (a *App) Health() error {
	if err := database.Health(); err != nil {
		return err
	}
	if a.rdb != nil {
		if err := a.rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close 关闭全部会话后释放存储连接
func (a *App) Close() error {
	var firstErr error
	if a.Registry != nil {
		firstErr = a.Registry.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := database.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
