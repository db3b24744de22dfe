package cisco_nxos

import (
	"context"
	"errors"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// PullMacTable 设备拒绝、连接被跳过、空回显或 XML 无法解析时返回空表
func (d *Driver) PullMacTable(ctx context.Context, r device.Runner, iface string) ([]device.MacEntry, error) {
	out, err := r.Run(ctx, d.MacTableCommand(iface))
	if err != nil {
		if errors.Is(err, device.ErrInvalidInput) {
			return []device.MacEntry{}, nil
		}
		return nil, err
	}
	if strings.TrimSpace(out) == "" || device.ContainsSkipped(out) {
		return []device.MacEntry{}, nil
	}
	rows, err := device.XMLRows(out, "ROW_mac_address")
	if err != nil {
		logger.Warn("Unparseable MAC table XML", "interface", iface, "error", err)
		return []device.MacEntry{}, nil
	}
	return macEntries(rows), nil
}

func macEntries(rows []device.Row) []device.MacEntry {
	entries := make([]device.MacEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, device.MacEntry{
			VLAN:    row["disp_vlan"],
			Address: row["disp_mac_addr"],
			Port:    row["disp_port"],
		})
	}
	return entries
}
