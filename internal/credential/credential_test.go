package credential

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

func newRedisResolver(t *testing.T, ttl time.Duration) (*RedisResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisResolver(rdb, ttl), mr
}

func TestRedisResolverGeneralCredentials(t *testing.T) {
	r, mr := newRedisResolver(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.Store(ctx, "6f1c0d9e", 0, Credential{Username: "netops", Password: "pw1"}))
	assert.Equal(t, "10", mr.HGet("users", "6f1c0d9e"))
	assert.Equal(t, "netops", mr.HGet("10", "user"))
	assert.Equal(t, time.Minute, mr.TTL("10"))

	cred, err := r.Resolve(ctx, "6f1c0d9e", &model.Device{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, &Credential{Username: "netops", Password: "pw1"}, cred)

	// 再次登录复用原凭据ID
	require.NoError(t, r.Store(ctx, "6f1c0d9e", 0, Credential{Username: "netops", Password: "pw2"}))
	assert.Equal(t, "10", mr.HGet("users", "6f1c0d9e"))
	cred, err = r.Resolve(ctx, "6f1c0d9e", nil)
	require.NoError(t, err)
	assert.Equal(t, "pw2", cred.Password)
}

func TestRedisResolverLocalCredentials(t *testing.T) {
	r, mr := newRedisResolver(t, 0)
	ctx := context.Background()
	dev := &model.Device{ID: 42, LocalCredentials: true}

	_, err := r.Resolve(ctx, "op-1", dev)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Store(ctx, "op-1", 42, Credential{Username: "admin", Password: "local", Privileged: "en"}))
	assert.Equal(t, "op-1", mr.HGet(mr.HGet("localusers", "42--op-1"), "localuser"))

	cred, err := r.Resolve(ctx, "op-1", dev)
	require.NoError(t, err)
	assert.Equal(t, &Credential{Username: "admin", Password: "local", Privileged: "en"}, cred)

	// 通用凭据不会被本地账号替代
	_, err = r.Resolve(ctx, "op-1", &model.Device{ID: 42})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisResolverExpiry(t *testing.T) {
	r, mr := newRedisResolver(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, r.Store(ctx, "op-2", 0, Credential{Username: "u", Password: "p"}))

	mr.FastForward(50 * time.Second)
	require.NoError(t, r.Touch(ctx, "op-2"))
	mr.FastForward(50 * time.Second)
	_, err := r.Resolve(ctx, "op-2", nil)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = r.Resolve(ctx, "op-2", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisResolverDelete(t *testing.T) {
	r, mr := newRedisResolver(t, 0)
	ctx := context.Background()
	require.NoError(t, r.Store(ctx, "op-3", 0, Credential{Username: "u", Password: "p"}))
	require.NoError(t, r.Delete(ctx, "op-3"))
	assert.False(t, mr.Exists("10"))
	_, err := r.Resolve(ctx, "op-3", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, r.Delete(ctx, "never-stored"))
}

func TestRedisResolverUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	r := NewRedisResolver(rdb, 0)
	_, err := r.Resolve(context.Background(), "op", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	rdb, err := NewRedisClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string]config.StaticCredential{
		"default": {Username: "netops", Password: "pw"},
		"op-9":    {Username: "admin", Password: "x", Privileged: "en"},
	})
	cred, err := r.Resolve(context.Background(), "op-9", nil)
	require.NoError(t, err)
	assert.Equal(t, "en", cred.Privileged)

	cred, err = r.Resolve(context.Background(), "someone", nil)
	require.NoError(t, err)
	assert.Equal(t, "netops", cred.Username)

	_, err = NewStaticResolver(nil).Resolve(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScrub(t *testing.T) {
	c := &Credential{Username: "u", Password: "p", Privileged: "e"}
	c.Scrub()
	assert.Equal(t, Credential{}, *c)
	var nilCred *Credential
	assert.NotPanics(t, nilCred.Scrub)
}
