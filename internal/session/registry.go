package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/credential"
	"github.com/sshcollectorpro/netconfig/internal/inventory"
	"github.com/sshcollectorpro/netconfig/internal/metrics"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

var (
	// ErrUnreachable 连接或登录失败、超时
	ErrUnreachable = errors.New("device unreachable")
	// ErrNoCredentials 无法解析该身份的凭据
	ErrNoCredentials = errors.New("no credentials available")
	// ErrTransport 已建立的通道上读写失败
	ErrTransport = errors.New("transport failure")
	// ErrReleased 建立连接期间会话已被释放（注销或断开）
	ErrReleased = errors.New("session released while connecting")

	errBroken = errors.New("session marked broken")
)

// Dialer 建立到设备的通道
type Dialer interface {
	Open(ctx context.Context, dev *model.Device, cred *credential.Credential, timeout time.Duration) (Transport, error)
}

// Options 注册表超时与空闲回收参数
type Options struct {
	ConnectTimeout  time.Duration
	ProbeTimeout    time.Duration
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 3 * time.Second
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = 30 * time.Second
	}
	return o
}

// slot 单个 Key 的互斥锁，引用计数归零时从表中移除
type slot struct {
	mu   sync.Mutex
	refs int
}

// pendingDial 正在建立中的连接，释放时只打标记，由建立方关闭
type pendingDial struct {
	released bool
}

// Registry 按 (设备, 身份) 复用交互会话
type Registry struct {
	inv    inventory.Store
	creds  credential.Resolver
	dialer Dialer
	opts   Options

	mu       sync.Mutex
	sessions map[Key]*Session
	slots    map[Key]*slot
	pending  map[Key]*pendingDial

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry 创建注册表；IdleTimeout > 0 时启动空闲回收协程
func NewRegistry(inv inventory.Store, creds credential.Resolver, dialer Dialer, opts Options) *Registry {
	r := &Registry{
		inv:      inv,
		creds:    creds,
		dialer:   dialer,
		opts:     opts.withDefaults(),
		sessions: make(map[Key]*Session),
		slots:    make(map[Key]*slot),
		pending:  make(map[Key]*pendingDial),
		stop:     make(chan struct{}),
	}
	if r.opts.IdleTimeout > 0 {
		r.wg.Add(1)
		go r.janitor()
	}
	return r
}

// lockKey 串行化同一 Key 上的建立与替换，不同 Key 互不影响
func (r *Registry) lockKey(k Key) func() {
	r.mu.Lock()
	s, ok := r.slots[k]
	if !ok {
		s = &slot{}
		r.slots[k] = s
	}
	s.refs++
	r.mu.Unlock()

	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		r.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(r.slots, k)
		}
		r.mu.Unlock()
	}
}

// Acquire 返回该身份在该设备上的会话：已有会话先探测存活，失效则关闭后重建
func (r *Registry) Acquire(ctx context.Context, dev *model.Device, identity string) (*Session, error) {
	drv, err := device.New(dev.OSVariant)
	if err != nil {
		metrics.SessionFailures.WithLabelValues(dev.OSVariant, "variant").Inc()
		return nil, err
	}

	key := Key{DeviceID: dev.ID, Identity: identity}
	unlock := r.lockKey(key)
	defer unlock()

	r.mu.Lock()
	existing := r.sessions[key]
	r.mu.Unlock()

	if existing != nil {
		perr := existing.probe(r.opts.ProbeTimeout)
		if perr == nil {
			return existing, nil
		}
		logger.Info("Session probe failed, replacing",
			"device_id", dev.ID, "hostname", dev.Hostname, "identity", identity, "error", perr)
		metrics.SessionReplacements.WithLabelValues(dev.OSVariant).Inc()
		r.remove(key, existing)
		// 先关闭旧通道再建立新通道，避免泄漏底层连接
		if cerr := existing.transport.Close(); cerr != nil {
			logger.Debug("Closing stale session failed", "device_id", dev.ID, "error", cerr)
		}
	}

	pd := &pendingDial{}
	r.mu.Lock()
	r.pending[key] = pd
	r.mu.Unlock()

	t, err := r.open(ctx, dev, identity)

	r.mu.Lock()
	delete(r.pending, key)
	released := pd.released
	if err == nil && !released {
		s := newSession(key, *dev, drv, t)
		r.sessions[key] = s
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		r.mu.Unlock()
		metrics.SessionOpens.WithLabelValues(dev.OSVariant, "stored").Inc()
		logger.WithDevice(fmt.Sprint(dev.ID), dev.Hostname, identity).Info("Session established")
		return s, nil
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	// 连接期间已被释放：不入表，直接关闭新通道
	logger.Info("Session released while connecting, discarding",
		"device_id", dev.ID, "hostname", dev.Hostname, "identity", identity)
	if cerr := t.Close(); cerr != nil {
		logger.Debug("Closing released session failed", "device_id", dev.ID, "error", cerr)
	}
	return nil, fmt.Errorf("%w: %s", ErrReleased, dev.Hostname)
}

// OpenOneOff 建立一个不进入注册表的会话，调用方负责 Close
func (r *Registry) OpenOneOff(ctx context.Context, dev *model.Device, identity string) (*Session, error) {
	drv, err := device.New(dev.OSVariant)
	if err != nil {
		return nil, err
	}
	t, err := r.open(ctx, dev, identity)
	if err != nil {
		return nil, err
	}
	metrics.SessionOpens.WithLabelValues(dev.OSVariant, "oneoff").Inc()
	return newSession(Key{DeviceID: dev.ID, Identity: identity}, *dev, drv, t), nil
}

func (r *Registry) open(ctx context.Context, dev *model.Device, identity string) (Transport, error) {
	cred, err := r.creds.Resolve(ctx, identity, dev)
	if err != nil {
		metrics.SessionFailures.WithLabelValues(dev.OSVariant, "credentials").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrNoCredentials, dev.Hostname, err)
	}
	defer cred.Scrub()

	dctx, cancel := context.WithTimeout(ctx, r.opts.ConnectTimeout)
	defer cancel()
	t, err := r.dialer.Open(dctx, dev, cred, r.opts.ConnectTimeout)
	if err != nil {
		metrics.SessionFailures.WithLabelValues(dev.OSVariant, "unreachable").Inc()
		logger.Warn("Failed to open session", "device_id", dev.ID, "hostname", dev.Hostname, "ip", dev.IPv4, "error", err)
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrUnreachable, dev.Hostname, dev.IPv4, err)
	}
	return t, nil
}

// remove 仅当表中仍是 s 时删除
func (r *Registry) remove(key Key, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[key] == s {
		delete(r.sessions, key)
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
	}
}

// closeAsync 在后台关闭通道，错误只记调试日志
func closeAsync(s *Session) {
	go func() {
		if err := s.transport.Close(); err != nil {
			logger.Debug("Session close failed", "device_id", s.Key.DeviceID, "identity", s.Key.Identity, "error", err)
		}
	}()
}

// take 在锁内取出并删除满足条件的会话
func (r *Registry) take(match func(Key) bool) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for k, s := range r.sessions {
		if match(k) {
			out = append(out, s)
			delete(r.sessions, k)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	return out
}

// cancelPending 标记满足条件的在建连接为已释放，建立完成后由 Acquire 关闭
func (r *Registry) cancelPending(match func(Key) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, pd := range r.pending {
		if match(k) {
			pd.released = true
		}
	}
}

// release 取消在建连接并取出已有会话
func (r *Registry) release(match func(Key) bool) []*Session {
	r.cancelPending(match)
	return r.take(match)
}

// Release 立即移除会话，后台关闭通道，不等待网络
func (r *Registry) Release(deviceID uint, identity string) {
	key := Key{DeviceID: deviceID, Identity: identity}
	for _, s := range r.release(func(k Key) bool { return k == key }) {
		closeAsync(s)
	}
}

// ReleaseAll 断开该身份的全部会话（注销时调用）
func (r *Registry) ReleaseAll(identity string) int {
	taken := r.release(func(k Key) bool { return k.Identity == identity })
	for _, s := range taken {
		closeAsync(s)
	}
	if len(taken) > 0 {
		logger.Info("Released sessions", "identity", identity, "count", len(taken))
	}
	return len(taken)
}

// ReleaseDevice 断开所有身份在该设备上的会话
func (r *Registry) ReleaseDevice(deviceID uint) int {
	taken := r.release(func(k Key) bool { return k.DeviceID == deviceID })
	for _, s := range taken {
		closeAsync(s)
	}
	return len(taken)
}

// Count 该身份持有的会话数
func (r *Registry) Count(identity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.sessions {
		if k.Identity == identity {
			n++
		}
	}
	return n
}

// Sessions 该身份持有的会话快照
func (r *Registry) Sessions(identity string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0)
	for k, s := range r.sessions {
		if k.Identity == identity {
			out = append(out, s)
		}
	}
	return out
}

// ListDevices 该身份有会话的设备，按主机名排序（主机名相同按 ID）；清单中已删除的设备跳过
func (r *Registry) ListDevices(ctx context.Context, identity string) ([]model.Device, error) {
	r.mu.Lock()
	ids := make([]uint, 0)
	for k := range r.sessions {
		if k.Identity == identity {
			ids = append(ids, k.DeviceID)
		}
	}
	r.mu.Unlock()

	found := make([]*model.Device, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			d, err := r.inv.Get(gctx, id)
			if errors.Is(err, inventory.ErrNotFound) {
				logger.Warn("Session device missing from inventory", "device_id", id, "identity", identity)
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	devices := make([]model.Device, 0, len(found))
	for _, d := range found {
		if d != nil {
			devices = append(devices, *d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Hostname != devices[j].Hostname {
			return devices[i].Hostname < devices[j].Hostname
		}
		return devices[i].ID < devices[j].ID
	})
	return devices, nil
}

// janitor 周期性关闭空闲超时的会话
func (r *Registry) janitor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

// evictIdle 关闭空闲超过 IdleTimeout 且没有命令在执行的会话
func (r *Registry) evictIdle(now time.Time) int {
	idle := r.take(func(k Key) bool {
		s := r.sessions[k]
		return s.idleSince(now) > r.opts.IdleTimeout
	})
	for _, s := range idle {
		logger.Debug("Evicting idle session", "device_id", s.Key.DeviceID, "identity", s.Key.Identity)
		closeAsync(s)
	}
	metrics.SessionEvictions.Add(float64(len(idle)))
	return len(idle)
}

// Close 停止回收协程并关闭全部会话
func (r *Registry) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	all := r.release(func(Key) bool { return true })
	var g errgroup.Group
	for _, s := range all {
		g.Go(func() error { return s.transport.Close() })
	}
	return g.Wait()
}
