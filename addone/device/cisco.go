package device

import (
	"context"
	"errors"
	"strings"
)

// CiscoBase Cisco 各 OS 变体共用的命令，由平台驱动嵌入后按需覆盖
type CiscoBase struct{}

func (CiscoBase) EnterConfig() string { return "configure terminal" }

func (CiscoBase) ExitConfig() string { return "end" }

// IsInConfig 提示符形如 "sw1(config)#" 或 "sw1(config-if)#" 时处于配置模式
func (CiscoBase) IsInConfig(prompt string) bool {
	return strings.Contains(prompt, "(config")
}

func (CiscoBase) RunningConfigCommand() string { return "show running-config" }

func (CiscoBase) StartupConfigCommand() string { return "show startup-config" }

func (CiscoBase) InterfaceConfigCommand(iface string) string {
	return "show run interface " + iface + " | exclude configuration|!"
}

func (CiscoBase) InterfaceStatsCommand(iface string) string {
	return "show interface " + iface
}

func (CiscoBase) SaveConfigCommand() string { return "write memory" }

func (CiscoBase) VersionCommand() string { return "show version" }

func (CiscoBase) InventoryCommand() string { return "show inventory" }

// EnableInterfaceCommands no shutdown 批次
func (b CiscoBase) EnableInterfaceCommands(iface string) []string {
	return []string{"interface " + iface, "no shutdown", b.ExitConfig()}
}

// DisableInterfaceCommands shutdown 批次
func (b CiscoBase) DisableInterfaceCommands(iface string) []string {
	return []string{"interface " + iface, "shutdown", b.ExitConfig()}
}

// EditInterfaceCommands 生成接口编辑批次，VLAN 为空或 "0" 时不下发对应行
func (b CiscoBase) EditInterfaceCommands(iface string, edit InterfaceEdit) []string {
	cmds := []string{"interface " + iface}
	if vlanSet(edit.DataVLAN) {
		cmds = append(cmds, "switchport access vlan "+strings.TrimSpace(edit.DataVLAN))
	}
	if vlanSet(edit.VoiceVLAN) {
		cmds = append(cmds, "switchport voice vlan "+strings.TrimSpace(edit.VoiceVLAN))
	}
	for _, line := range edit.Extra {
		if line = strings.TrimSpace(line); line != "" {
			cmds = append(cmds, line)
		}
	}
	return append(cmds, b.ExitConfig())
}

func vlanSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "0"
}

// CountInterfaces 默认采用 IOS 系列的统计规则
func (CiscoBase) CountInterfaces(records []InterfaceRecord) InterfaceCounts {
	return CountIOSFamily(records)
}

// PullPoEStatus 默认不支持 PoE，返回空结果
func (CiscoBase) PullPoEStatus(context.Context, Runner) (map[string]string, error) {
	return map[string]string{}, nil
}

// PullUptime IOS 与 NX-OS 的运行时长："<host> uptime is <value>"
func (CiscoBase) PullUptime(ctx context.Context, r Runner) (string, error) {
	lines, err := RunLines(ctx, r, "show version | include uptime")
	if err != nil {
		return "", err
	}
	return ParseUptime(lines), nil
}

// ParseUptime 取最后一条包含 "uptime" 的行中第三个空格之后的内容
func ParseUptime(lines []string) string {
	uptime := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "uptime") {
			continue
		}
		if parts := strings.SplitN(line, " ", 4); len(parts) == 4 {
			uptime = strings.TrimSpace(parts[3])
		}
	}
	return uptime
}

// RunLines 执行命令并按行返回；设备拒绝命令时返回空结果
func RunLines(ctx context.Context, r Runner, command string) ([]string, error) {
	out, err := r.Run(ctx, command)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, nil
		}
		return nil, err
	}
	return SplitLines(out), nil
}
