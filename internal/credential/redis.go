package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// Redis 中的键布局：
//   users       hash  身份 -> 凭据ID
//   localusers  hash  "<设备ID>--<身份>" -> 凭据ID
//   <凭据ID>    hash  user / pw / privpw，带过期时间
const (
	usersKey      = "users"
	localUsersKey = "localusers"
	nextIDKey     = "next_user_id"
)

// RedisResolver 从 Redis 读取登录时保存的凭据
type RedisResolver struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient 按配置创建客户端并 Ping 一次
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Redis credential store connected", "addr", cfg.Addr())
	return rdb, nil
}

// NewRedisResolver ttl <= 0 时凭据不过期
func NewRedisResolver(rdb *redis.Client, ttl time.Duration) *RedisResolver {
	return &RedisResolver{rdb: rdb, ttl: ttl}
}

func localKey(deviceID uint, identity string) string {
	return fmt.Sprintf("%d--%s", deviceID, identity)
}

// Resolve 设备使用本地账号时查 localusers，否则查 users
func (r *RedisResolver) Resolve(ctx context.Context, identity string, device *model.Device) (*Credential, error) {
	index, field := usersKey, identity
	if device != nil && device.LocalCredentials {
		index, field = localUsersKey, localKey(device.ID, identity)
	}
	savedID, err := r.rdb.HGet(ctx, index, field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s[%s]", ErrNotFound, index, field)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", index, err)
	}
	vals, err := r.rdb.HGetAll(ctx, savedID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	// 凭据哈希已过期，索引仍在
	if vals["user"] == "" {
		return nil, fmt.Errorf("%w: %s[%s] expired", ErrNotFound, index, field)
	}
	return &Credential{Username: vals["user"], Password: vals["pw"], Privileged: vals["privpw"]}, nil
}

// Store 保存凭据；deviceID 为 0 时作为该身份的通用凭据，否则作为该设备的本地账号。
// 已有记录时复用原凭据ID
func (r *RedisResolver) Store(ctx context.Context, identity string, deviceID uint, cred Credential) error {
	index, field := usersKey, identity
	if deviceID != 0 {
		index, field = localUsersKey, localKey(deviceID, identity)
	}
	savedID, err := r.rdb.HGet(ctx, index, field).Result()
	if errors.Is(err, redis.Nil) {
		n, incErr := r.rdb.IncrBy(ctx, nextIDKey, 10).Result()
		if incErr != nil {
			return fmt.Errorf("failed to allocate credential id: %w", incErr)
		}
		savedID = strconv.FormatInt(n, 10)
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %w", index, err)
	}

	fields := map[string]interface{}{"user": cred.Username, "pw": cred.Password}
	if cred.Privileged != "" {
		fields["privpw"] = cred.Privileged
	}
	if deviceID != 0 {
		fields["localuser"] = identity
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, savedID, fields)
		pipe.HSet(ctx, index, field, savedID)
		if r.ttl > 0 {
			pipe.Expire(ctx, savedID, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// Touch 续期该身份的通用凭据，只在不活动时才过期
func (r *RedisResolver) Touch(ctx context.Context, identity string) error {
	if r.ttl <= 0 {
		return nil
	}
	savedID, err := r.rdb.HGet(ctx, usersKey, identity).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.rdb.Expire(ctx, savedID, r.ttl).Err()
}

// Delete 删除该身份的通用凭据
func (r *RedisResolver) Delete(ctx context.Context, identity string) error {
	savedID, err := r.rdb.HGet(ctx, usersKey, identity).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, savedID)
		pipe.HDel(ctx, usersKey, identity)
		return nil
	})
	return err
}
