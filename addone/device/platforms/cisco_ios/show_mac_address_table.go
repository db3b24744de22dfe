package cisco_ios

import (
	"context"
	"errors"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// PullMacTable 先尝试 "show mac address-table"，设备拒绝时改用旧拼写 "show mac-address-table"；
// 两种都被拒绝时返回空表
func (d *Driver) PullMacTable(ctx context.Context, r device.Runner, iface string) ([]device.MacEntry, error) {
	out, err := r.Run(ctx, d.MacTableCommand(iface))
	if errors.Is(err, device.ErrInvalidInput) {
		out, err = r.Run(ctx, "show mac-address-table interface "+iface)
	}
	if err != nil {
		if errors.Is(err, device.ErrInvalidInput) {
			return []device.MacEntry{}, nil
		}
		return nil, err
	}
	return parseMacTable(out, d.portColumn()), nil
}

// IOS-XE 多出一列 protocols，端口位于第 5 列
func (d *Driver) portColumn() int {
	if d.variant == device.VariantIOSXE {
		return 4
	}
	return 3
}

func parseMacTable(out string, portCol int) []device.MacEntry {
	out = strings.ReplaceAll(out, "*", "")
	// protocols 列内部的逗号替换为下划线，保证按列切分后仍是一个字段
	out = strings.ReplaceAll(out, ",", "_")

	entries := make([]device.MacEntry, 0)
	for _, line := range device.SplitLines(out) {
		if strings.Contains(line, "Unicast Entries") {
			continue
		}
		if strings.Contains(line, "Multicast Entries") {
			break
		}
		if strings.Contains(line, "Mac") || strings.Contains(line, "--") || strings.Contains(line, "protocols") {
			continue
		}
		f := strings.Fields(line)
		if len(f) <= portCol {
			continue
		}
		entries = append(entries, device.MacEntry{VLAN: f[0], Address: f[1], Port: f[portCol]})
	}
	return entries
}
