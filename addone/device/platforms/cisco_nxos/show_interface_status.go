package cisco_nxos

import (
	"context"
	"errors"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// 接口地址补充命令，XML 结果中不含 IP
const ipAddressCommand = "sh run int | egrep interface|ip.address | ex passive | ex !"

var downStates = []string{"down", "notconnect", "noOperMembers", "sfpAbsent", "disabled"}

// protocolOf 将 NX-OS 的 state 映射为协议状态
func protocolOf(state string) string {
	for _, s := range downStates {
		if strings.Contains(state, s) {
			return device.StatusDown
		}
	}
	if strings.Contains(state, "connected") {
		return device.StatusUp
	}
	return device.StatusUnknown
}

func speedLabel(speed string) string {
	switch speed {
	case "a-1000", "1000":
		return "1 Gbps"
	case "auto":
		return "Auto"
	case "a-10G", "10G":
		return "10 Gbps"
	case "a-100", "100":
		return "100 Mbps"
	default:
		return speed
	}
}

// PullInterfaces show interface status | xml，再用 running-config 中的 ip address 补全地址。
// 设备拒绝、连接被跳过、空回显或 XML 无法解析时返回空表
func (d *Driver) PullInterfaces(ctx context.Context, r device.Runner) ([]device.InterfaceRecord, error) {
	out, err := r.Run(ctx, d.InterfaceBriefCommand())
	if err != nil {
		if errors.Is(err, device.ErrInvalidInput) {
			return []device.InterfaceRecord{}, nil
		}
		return nil, err
	}
	if strings.TrimSpace(out) == "" || device.ContainsSkipped(out) {
		return []device.InterfaceRecord{}, nil
	}
	rows, err := device.XMLRows(out, "ROW_interface")
	if err != nil {
		logger.Warn("Unparseable interface status XML", "error", err)
		return []device.InterfaceRecord{}, nil
	}

	lines, err := device.RunLines(ctx, r, ipAddressCommand)
	if err != nil {
		return nil, err
	}
	return buildInterfaces(rows, parseInterfaceAddresses(lines)), nil
}

func buildInterfaces(rows []device.Row, addrs map[string]string) []device.InterfaceRecord {
	records := make([]device.InterfaceRecord, 0, len(rows))
	for _, row := range rows {
		name := row["interface"]
		if name == "" {
			continue
		}
		state := row["state"]
		proto := protocolOf(state)
		status := device.StatusDown
		switch {
		case strings.Contains(state, "disabled"):
			status = device.StatusAdminDown
		case proto == device.StatusUp:
			status = device.StatusUp
		}
		addr, ok := addrs[name]
		if !ok {
			addr = device.EmptyField
		}
		records = append(records, device.InterfaceRecord{
			Name:        name,
			Address:     addr,
			Description: device.TruncateDescription(row["name"]),
			Status:      status,
			Protocol:    proto,
			RawStatus:   state,
			Speed:       speedLabel(row["speed"]),
		})
	}
	return records
}

// parseInterfaceAddresses 取每个接口下第一条 ip address 行的末字段，保留掩码长度
func parseInterfaceAddresses(lines []string) map[string]string {
	addrs := map[string]string{}
	current := ""
	for _, line := range lines {
		f := strings.Fields(line)
		switch {
		case len(f) >= 2 && f[0] == "interface":
			current = f[1]
		case len(f) >= 3 && f[0] == "ip" && f[1] == "address" && current != "":
			if _, seen := addrs[current]; !seen {
				addrs[current] = f[len(f)-1]
			}
		}
	}
	return addrs
}
