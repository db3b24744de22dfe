package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sshcollectorpro/netconfig/internal/credential"
	"github.com/sshcollectorpro/netconfig/internal/inventory"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

const invalidInput = "                ^\n% Invalid input detected at '^' marker."

var errLinkDown = errors.New("link down")

// fakeTransport 模拟 Cisco CLI 的模式切换
type fakeTransport struct {
	mu       sync.Mutex
	hostname string
	config   bool
	outputs  map[string]string
	sent     []string
	failOn   string
	probeErr error

	closeOnce  sync.Once
	closed     chan struct{}
	closeGate  chan struct{}
	closeCalls int
}

func newFakeTransport(hostname string, outputs map[string]string) *fakeTransport {
	return &fakeTransport{hostname: hostname, outputs: outputs, closed: make(chan struct{})}
}

func (f *fakeTransport) Send(_ context.Context, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, command)
	if command == f.failOn {
		return "", errLinkDown
	}
	switch {
	case command == "configure terminal":
		f.config = true
		return "Enter configuration commands, one per line.  End with CNTL/Z.", nil
	case command == "end":
		if !f.config {
			return invalidInput, nil
		}
		f.config = false
		return "", nil
	case f.config:
		if strings.HasPrefix(command, "show ") {
			return invalidInput, nil
		}
		return "", nil
	}
	if out, ok := f.outputs[command]; ok {
		return out, nil
	}
	return invalidInput, nil
}

func (f *fakeTransport) SendBatch(ctx context.Context, commands []string) ([]string, error) {
	outs := make([]string, 0, len(commands))
	for _, c := range commands {
		out, err := f.Send(ctx, c)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (f *fakeTransport) Probe(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeTransport) Prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.config {
		return f.hostname + "(config)#"
	}
	return f.hostname + "#"
}

func (f *fakeTransport) Close() error {
	if f.closeGate != nil {
		<-f.closeGate
	}
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) sentCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) setConfig(v bool) {
	f.mu.Lock()
	f.config = v
	f.mu.Unlock()
}

type mockDialer struct{ mock.Mock }

func (m *mockDialer) Open(ctx context.Context, dev *model.Device, cred *credential.Credential, timeout time.Duration) (Transport, error) {
	args := m.Called(ctx, dev, cred, timeout)
	if fn, ok := args.Get(0).(func() Transport); ok {
		return fn(), args.Error(1)
	}
	t, _ := args.Get(0).(Transport)
	return t, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, identity string, dev *model.Device) (*credential.Credential, error) {
	args := m.Called(ctx, identity, dev)
	if fn, ok := args.Get(0).(func() *credential.Credential); ok {
		return fn(), args.Error(1)
	}
	c, _ := args.Get(0).(*credential.Credential)
	return c, args.Error(1)
}

// memInventory 内存清单
type memInventory struct {
	mu      sync.Mutex
	devices map[uint]model.Device
}

func newMemInventory(devices ...model.Device) *memInventory {
	m := &memInventory{devices: make(map[uint]model.Device)}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *memInventory) Get(_ context.Context, id uint) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", inventory.ErrNotFound, id)
	}
	return &d, nil
}

func (m *memInventory) List(context.Context) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *memInventory) delete(id uint) {
	m.mu.Lock()
	delete(m.devices, id)
	m.mu.Unlock()
}
