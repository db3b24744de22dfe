package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/inventory"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/internal/session"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// DeviceService 面向调用方的设备操作：取会话、选驱动、执行并解析
type DeviceService struct {
	inv      inventory.Store
	sessions *session.Registry
}

// NewDeviceService 创建设备服务
func NewDeviceService(inv inventory.Store, sessions *session.Registry) *DeviceService {
	return &DeviceService{inv: inv, sessions: sessions}
}

// InterfaceTable 接口列表与统计
type InterfaceTable struct {
	Device     model.Device             `json:"device"`
	Interfaces []device.InterfaceRecord `json:"interfaces"`
	Counts     device.InterfaceCounts   `json:"counts"`
}

// InterfaceInfo 单个接口的配置、MAC 表与统计
type InterfaceInfo struct {
	Interface  string            `json:"interface"`
	Config     []string          `json:"config"`
	MacEntries []device.MacEntry `json:"mac_entries"`
	Statistics []string          `json:"statistics"`
}

// Device 查询清单中的设备
func (s *DeviceService) Device(ctx context.Context, id uint) (*model.Device, error) {
	return s.inv.Get(ctx, id)
}

// Devices 清单中的全部设备
func (s *DeviceService) Devices(ctx context.Context) ([]model.Device, error) {
	return s.inv.List(ctx)
}

func (s *DeviceService) acquire(ctx context.Context, id uint, identity string) (*session.Session, error) {
	dev, err := s.inv.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.sessions.Acquire(ctx, dev, identity)
}

// Interfaces 拉取接口表并统计
func (s *DeviceService) Interfaces(ctx context.Context, id uint, identity string) (*InterfaceTable, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	drv := sess.Driver()
	records, err := drv.PullInterfaces(ctx, sess.Executor())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []device.InterfaceRecord{}
	}
	return &InterfaceTable{Device: sess.Device, Interfaces: records, Counts: drv.CountInterfaces(records)}, nil
}

// InterfaceCounts 仅返回接口统计
func (s *DeviceService) InterfaceCounts(ctx context.Context, id uint, identity string) (device.InterfaceCounts, error) {
	table, err := s.Interfaces(ctx, id, identity)
	if err != nil {
		return device.InterfaceCounts{}, err
	}
	return table.Counts, nil
}

// MacTable 某接口上学到的 MAC 地址
func (s *DeviceService) MacTable(ctx context.Context, id uint, identity, iface string) ([]device.MacEntry, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	return sess.Driver().PullMacTable(ctx, sess.Executor(), iface)
}

// Neighbors CDP 邻居
func (s *DeviceService) Neighbors(ctx context.Context, id uint, identity string) ([]device.NeighborEntry, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	return sess.Driver().PullNeighbors(ctx, sess.Executor())
}

// Uptime 设备运行时长
func (s *DeviceService) Uptime(ctx context.Context, id uint, identity string) (string, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return "", err
	}
	return sess.Driver().PullUptime(ctx, sess.Executor())
}

// PoEStatus 接口 PoE 状态，不支持的平台为空
func (s *DeviceService) PoEStatus(ctx context.Context, id uint, identity string) (map[string]string, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	return sess.Driver().PullPoEStatus(ctx, sess.Executor())
}

// Version show version 的各行
func (s *DeviceService) Version(ctx context.Context, id uint, identity string) ([]string, error) {
	return s.lines(ctx, id, identity, func(d device.Driver) string { return d.VersionCommand() })
}

// Inventory show inventory 的各行
func (s *DeviceService) Inventory(ctx context.Context, id uint, identity string) ([]string, error) {
	return s.lines(ctx, id, identity, func(d device.Driver) string { return d.InventoryCommand() })
}

// RunningConfig 运行配置
func (s *DeviceService) RunningConfig(ctx context.Context, id uint, identity string) (string, error) {
	return s.text(ctx, id, identity, func(d device.Driver) string { return d.RunningConfigCommand() })
}

// StartupConfig 启动配置
func (s *DeviceService) StartupConfig(ctx context.Context, id uint, identity string) (string, error) {
	return s.text(ctx, id, identity, func(d device.Driver) string { return d.StartupConfigCommand() })
}

func (s *DeviceService) lines(ctx context.Context, id uint, identity string, cmd func(device.Driver) string) ([]string, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	return device.RunLines(ctx, sess.Executor(), cmd(sess.Driver()))
}

func (s *DeviceService) text(ctx context.Context, id uint, identity string, cmd func(device.Driver) string) (string, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return "", err
	}
	return sess.Executor().Run(ctx, cmd(sess.Driver()))
}

// InterfaceInfo 接口配置、MAC 表（平台不支持时为空）与统计
func (s *DeviceService) InterfaceInfo(ctx context.Context, id uint, identity, iface string) (*InterfaceInfo, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	drv, exec := sess.Driver(), sess.Executor()

	info := &InterfaceInfo{Interface: iface, MacEntries: []device.MacEntry{}}
	if info.Config, err = device.RunLines(ctx, exec, drv.InterfaceConfigCommand(iface)); err != nil {
		return nil, err
	}
	macs, err := drv.PullMacTable(ctx, exec, iface)
	if err != nil {
		return nil, err
	}
	if macs != nil {
		info.MacEntries = macs
	}
	if info.Statistics, err = device.RunLines(ctx, exec, drv.InterfaceStatsCommand(iface)); err != nil {
		return nil, err
	}
	return info, nil
}

// EnableInterface no shutdown
func (s *DeviceService) EnableInterface(ctx context.Context, id uint, identity, iface string, save bool) ([]session.CommandResult, error) {
	return s.configure(ctx, id, identity, save, func(d device.Driver) []string { return d.EnableInterfaceCommands(iface) })
}

// DisableInterface shutdown
func (s *DeviceService) DisableInterface(ctx context.Context, id uint, identity, iface string, save bool) ([]session.CommandResult, error) {
	return s.configure(ctx, id, identity, save, func(d device.Driver) []string { return d.DisableInterfaceCommands(iface) })
}

// EditInterface 修改接口 VLAN 与附加配置行
func (s *DeviceService) EditInterface(ctx context.Context, id uint, identity, iface string, edit device.InterfaceEdit, save bool) ([]session.CommandResult, error) {
	return s.configure(ctx, id, identity, save, func(d device.Driver) []string { return d.EditInterfaceCommands(iface, edit) })
}

// RunConfigCommands 下发配置行，save 为 true 时保存
func (s *DeviceService) RunConfigCommands(ctx context.Context, id uint, identity string, lines []string, save bool) ([]session.CommandResult, error) {
	return s.configure(ctx, id, identity, save, func(device.Driver) []string { return lines })
}

func (s *DeviceService) configure(ctx context.Context, id uint, identity string, save bool, build func(device.Driver) []string) ([]session.CommandResult, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	lines := build(sess.Driver())
	logger.Info("Applying configuration",
		"device_id", id, "hostname", sess.Device.Hostname, "identity", identity, "lines", len(lines), "save", save)
	return sess.Executor().RunConfigBatch(ctx, lines, save)
}

// SaveConfig 保存运行配置
func (s *DeviceService) SaveConfig(ctx context.Context, id uint, identity string) (session.CommandResult, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return session.CommandResult{}, err
	}
	return sess.Executor().SaveConfig(ctx)
}

// RunCommands 依次执行操作命令，每条输出前加 "Command: x" 标题行
func (s *DeviceService) RunCommands(ctx context.Context, id uint, identity string, commands []string) ([]string, error) {
	sess, err := s.acquire(ctx, id, identity)
	if err != nil {
		return nil, err
	}
	results, err := sess.Executor().RunMany(ctx, commands)
	return withCommandHeaders(results), err
}

// RunCommandsOnce 在一次性会话上执行，不占用注册表
func (s *DeviceService) RunCommandsOnce(ctx context.Context, id uint, identity string, commands []string) ([]string, error) {
	dev, err := s.inv.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.OpenOneOff(ctx, dev, identity)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Debug("One-off session close failed", "device_id", id, "error", cerr)
		}
	}()
	results, err := sess.Executor().RunMany(ctx, commands)
	return withCommandHeaders(results), err
}

func withCommandHeaders(results []session.CommandResult) []string {
	out := make([]string, 0, 2*len(results))
	for _, r := range results {
		out = append(out, fmt.Sprintf("Command: %s", r.Command), strings.TrimRight(r.Output, "\n"))
	}
	return out
}
