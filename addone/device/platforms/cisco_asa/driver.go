package cisco_asa

import (
	"context"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// Driver 为 cisco_asa 平台驱动；ASA 不支持 CDP 与接口 MAC 表
type Driver struct {
	device.CiscoBase
}

func (d *Driver) Name() string { return device.VariantASA }

func (d *Driver) NeighborDiscoveryCommand() string { return "" }

func (d *Driver) InterfaceBriefCommand() string { return "show interface ip brief" }

func (d *Driver) MacTableCommand(string) string { return "" }

func (d *Driver) PullNeighbors(context.Context, device.Runner) ([]device.NeighborEntry, error) {
	return []device.NeighborEntry{}, nil
}

func (d *Driver) PullMacTable(context.Context, device.Runner, string) ([]device.MacEntry, error) {
	return []device.MacEntry{}, nil
}

// PullUptime show version | include up；跳过 file 行，遇到 failover 停止
func (d *Driver) PullUptime(ctx context.Context, r device.Runner) (string, error) {
	lines, err := device.RunLines(ctx, r, "show version | include up")
	if err != nil {
		return "", err
	}
	return parseUptime(lines), nil
}

func parseUptime(lines []string) string {
	uptime := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "failover") {
			break
		}
		if line == "" || strings.Contains(line, "file") {
			continue
		}
		if parts := strings.SplitN(line, " ", 3); len(parts) == 3 {
			uptime = strings.TrimSpace(parts[2])
		}
	}
	return uptime
}

func init() {
	device.Register(device.VariantASA, func() device.Driver { return &Driver{} })
}
