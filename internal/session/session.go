package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

// Transport 一条已登录的交互通道，由 pkg/ssh.Client 实现
type Transport interface {
	Send(ctx context.Context, command string) (string, error)
	SendBatch(ctx context.Context, commands []string) ([]string, error)
	Probe(timeout time.Duration) error
	Prompt() string
	Close() error
}

// Key 会话索引：同一设备的不同操作员各自持有会话
type Key struct {
	DeviceID uint
	Identity string
}

// Session 注册表中的一条会话
type Session struct {
	Key    Key
	Device model.Device

	driver    device.Driver
	transport Transport

	// mu 串行化同一通道上的命令
	mu         sync.Mutex
	configMode bool

	broken    atomic.Bool
	inFlight  atomic.Int32
	lastUsed  atomic.Int64
	lastProbe atomic.Value // probeResult
	createdAt time.Time
}

type probeResult struct{ err error }

func newSession(key Key, dev model.Device, drv device.Driver, t Transport) *Session {
	s := &Session{Key: key, Device: dev, driver: drv, transport: t, createdAt: time.Now()}
	s.lastUsed.Store(s.createdAt.UnixNano())
	return s
}

// Driver 该设备 OS 变体的驱动
func (s *Session) Driver() device.Driver { return s.driver }

// Executor 该会话上的命令执行器
func (s *Session) Executor() *Executor { return &Executor{s: s} }

// CreatedAt 建立时间
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastUsed 最近一次执行命令的时间
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// LastProbe 最近一次存活探测的结果，未探测过为 nil
func (s *Session) LastProbe() error {
	if v, ok := s.lastProbe.Load().(probeResult); ok {
		return v.err
	}
	return nil
}

// InConfigMode 是否记录为处于配置模式
func (s *Session) InConfigMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configMode
}

// Broken 通道出现过传输错误，下次 Acquire 时直接替换
func (s *Session) Broken() bool { return s.broken.Load() }

// Close 关闭通道；用于一次性会话，注册表中的会话请走 Release
func (s *Session) Close() error { return s.transport.Close() }

func (s *Session) probe(timeout time.Duration) error {
	if s.broken.Load() {
		return errBroken
	}
	err := s.transport.Probe(timeout)
	s.lastProbe.Store(probeResult{err: err})
	return err
}

func (s *Session) begin() {
	s.inFlight.Add(1)
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) end() {
	s.lastUsed.Store(time.Now().UnixNano())
	s.inFlight.Add(-1)
}

func (s *Session) idleSince(now time.Time) time.Duration {
	if s.inFlight.Load() > 0 {
		return 0
	}
	return now.Sub(s.LastUsed())
}
