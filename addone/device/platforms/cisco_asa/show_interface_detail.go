package cisco_asa

import (
	"context"
	"regexp"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// Interface GigabitEthernet0/1 "inside", is administratively down, line protocol is down
var interfaceHeader = regexp.MustCompile(`^Interface (\S+) .*?is (administratively down|up|down),\s+line protocol is (\S+)`)

// PullInterfaces 优先解析 show interface detail；回显为空时退回 show interface ip brief
func (d *Driver) PullInterfaces(ctx context.Context, r device.Runner) ([]device.InterfaceRecord, error) {
	lines, err := device.RunLines(ctx, r, "show interface detail")
	if err != nil {
		return nil, err
	}
	if records := parseInterfaceDetail(lines); len(records) > 0 {
		return records, nil
	}

	brief, err := device.RunLines(ctx, r, d.InterfaceBriefCommand())
	if err != nil {
		return nil, err
	}
	return device.ParseBriefTable(strings.Join(brief, "\n"), ""), nil
}

func parseInterfaceDetail(lines []string) []device.InterfaceRecord {
	records := make([]device.InterfaceRecord, 0)
	var (
		cur  device.InterfaceRecord
		seen bool
	)
	flush := func() {
		if !seen {
			return
		}
		if cur.Address == "" {
			cur.Address = device.EmptyField
		}
		cur.Description = device.TruncateDescription(cur.Description)
		records = append(records, cur)
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := interfaceHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			raw := m[2]
			if strings.Contains(raw, "admin") {
				raw = "admin down"
			}
			proto := strings.TrimRight(m[3], ",")
			cur = device.InterfaceRecord{
				Name:      m[1],
				RawStatus: raw,
				Status:    device.NormalizeStatus(raw),
				Protocol:  device.NormalizeProtocol(proto),
			}
			seen = true
			continue
		}
		if !seen {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "IP address"):
			if f := strings.Fields(trimmed); len(f) > 2 {
				cur.Address = strings.Trim(f[2], ",")
			}
		case strings.HasPrefix(trimmed, "Description:"):
			cur.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, "Description:"))
		}
	}
	flush()
	return records
}
