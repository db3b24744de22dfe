package device

import (
	"regexp"
	"strings"
)

// briefNoise "show ip interface brief" 中 OK? 与 Method 列的取值
var briefNoise = map[string]bool{
	"OK?": true, "Method": true, "YES": true, "NO": true, "unset": true, "NVRAM": true,
	"IPCP": true, "CONFIG": true, "TFTP": true, "manual": true, "DHCP": true,
}

var token = regexp.MustCompile(`\S+`)

// blankNoise 用等长空格覆盖噪声列，保持列对齐
func blankNoise(line string) string {
	b := []byte(line)
	for _, loc := range token.FindAllStringIndex(line, -1) {
		if briefNoise[line[loc[0]:loc[1]]] {
			for i := loc[0]; i < loc[1]; i++ {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

// briefColumns 将一行拆为 名称/地址/状态/协议 四列
func briefColumns(line string) (name, address, status, protocol string, ok bool) {
	s := CollapseDoubleSpaces(blankNoise(line))
	s = strings.ReplaceAll(s, "down down", "down,down")
	s = strings.ReplaceAll(s, " unassigned", ",unassigned")
	s = strings.ReplaceAll(s, "unassigned ", "unassigned,")

	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 3 {
		// 状态与协议之间只有一个空格，例如 "deleted down"
		if i := strings.LastIndex(parts[2], " "); i > 0 {
			parts = []string{parts[0], parts[1], parts[2][:i], parts[2][i+1:]}
		}
	}
	if len(parts) < 4 {
		// 列宽不足时退回按空白切分
		f := strings.Fields(blankNoise(line))
		if len(f) < 4 {
			return "", "", "", "", false
		}
		return f[0], f[1], strings.Join(f[2:len(f)-1], " "), f[len(f)-1], true
	}
	n := len(parts)
	return parts[0], parts[1], parts[n-2], parts[n-1], true
}

// parseDescriptions 解析 "show interface description"，按行序返回描述
func parseDescriptions(out string) []string {
	var descs []string
	for _, line := range SplitLines(out) {
		f := strings.Fields(line)
		if len(f) < 3 || f[0] == "Interface" {
			continue
		}
		skip := 3
		if strings.Contains(f[1], "admin") {
			skip = 4
		}
		desc := ""
		if len(f) > skip {
			desc = strings.Join(f[skip:], " ")
		}
		descs = append(descs, desc)
	}
	return descs
}

// ParseBriefTable 解析 IOS 系列的接口简表（show ip interface brief / show interface ip brief）。
// descriptions 为可选的 "show interface description" 回显，按行序对应；缺失的描述记为 "--"。
func ParseBriefTable(brief, descriptions string) []InterfaceRecord {
	descs := parseDescriptions(descriptions)
	var records []InterfaceRecord
	for _, line := range SplitLines(brief) {
		f := strings.Fields(line)
		if len(f) == 0 || f[0] == "Interface" || strings.HasPrefix(f[0], "%") {
			continue
		}
		name, addr, status, proto, ok := briefColumns(line)
		if !ok {
			continue
		}
		desc := ""
		if i := len(records); i < len(descs) {
			desc = descs[i]
		}
		records = append(records, InterfaceRecord{
			Name:        name,
			Address:     addr,
			Description: TruncateDescription(desc),
			Status:      NormalizeStatus(status),
			Protocol:    NormalizeProtocol(proto),
			RawStatus:   status,
		})
	}
	return records
}

// CountIOSFamily IOS/IOS-XE/ASA 的接口状态统计
func CountIOSFamily(records []InterfaceRecord) InterfaceCounts {
	var c InterfaceCounts
	for _, r := range records {
		raw := strings.ToLower(r.RawStatus)
		switch {
		case strings.Contains(raw, "admin"):
			c.Disabled++
		case strings.Contains(r.Protocol, "down"):
			c.Down++
		case strings.Contains(raw, "up") && strings.Contains(r.Protocol, "up"):
			c.Up++
		case strings.Contains(raw, "deleted"):
			c.Total--
		}
		c.Total++
	}
	return c
}
