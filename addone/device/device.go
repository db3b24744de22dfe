package device

import (
	"context"
	"errors"
)

// 支持的 OS 变体标识
const (
	VariantIOS   = "cisco_ios"
	VariantIOSXE = "cisco_iosxe"
	VariantNXOS  = "cisco_nxos"
	VariantASA   = "cisco_asa"
)

var (
	// ErrUnsupportedVariant 未注册的 OS 变体，属于配置错误
	ErrUnsupportedVariant = errors.New("unsupported os variant")
	// ErrInvalidInput 设备返回 "Invalid input detected"
	ErrInvalidInput = errors.New("invalid input detected")
	// ErrUnsupported 该平台不支持此操作
	ErrUnsupported = errors.New("operation not supported on this platform")
)

// Runner 在已建立的会话上执行单条命令，返回原始回显
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// InterfaceEdit 接口编辑参数；VLAN 为空或 "0" 表示不修改
type InterfaceEdit struct {
	DataVLAN  string   `json:"data_vlan"`
	VoiceVLAN string   `json:"voice_vlan"`
	Extra     []string `json:"extra"`
}

// Driver 单个 OS 变体的命令与解析能力
type Driver interface {
	Name() string

	EnterConfig() string
	ExitConfig() string
	IsInConfig(prompt string) bool

	RunningConfigCommand() string
	StartupConfigCommand() string
	NeighborDiscoveryCommand() string
	InterfaceBriefCommand() string
	InterfaceConfigCommand(iface string) string
	InterfaceStatsCommand(iface string) string
	MacTableCommand(iface string) string
	SaveConfigCommand() string
	VersionCommand() string
	InventoryCommand() string

	EnableInterfaceCommands(iface string) []string
	DisableInterfaceCommands(iface string) []string
	EditInterfaceCommands(iface string, edit InterfaceEdit) []string

	PullInterfaces(ctx context.Context, r Runner) ([]InterfaceRecord, error)
	CountInterfaces(records []InterfaceRecord) InterfaceCounts
	PullMacTable(ctx context.Context, r Runner, iface string) ([]MacEntry, error)
	PullNeighbors(ctx context.Context, r Runner) ([]NeighborEntry, error)
	PullUptime(ctx context.Context, r Runner) (string, error)
	PullPoEStatus(ctx context.Context, r Runner) (map[string]string, error)
}
