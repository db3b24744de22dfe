package cisco_ios

import (
	"context"
	"regexp"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

var shortIfName = regexp.MustCompile(`^[A-Z][a-z][0-9]/`)

var longIfName = map[string]string{
	"Gi": "GigabitEthernet",
	"Fa": "FastEthernet",
	"Te": "TenGigabitEthernet",
}

// PullPoEStatus show power inline，返回 接口全名 -> Oper 状态
func (d *Driver) PullPoEStatus(ctx context.Context, r device.Runner) (map[string]string, error) {
	lines, err := device.RunLines(ctx, r, "show power inline | begin Interface")
	if err != nil {
		return nil, err
	}
	return parsePowerInline(lines), nil
}

func parsePowerInline(lines []string) map[string]string {
	status := map[string]string{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" ||
			strings.Contains(line, "Interface") || strings.Contains(line, "Watts") || strings.Contains(line, "---") {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			continue
		}
		name := f[0]
		if shortIfName.MatchString(name) {
			if full, ok := longIfName[name[:2]]; ok {
				name = full + name[2:]
			}
		}
		status[name] = f[2]
	}
	return status
}
