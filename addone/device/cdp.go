package device

import "strings"

// afterColon 取第一个冒号之后、下一个冒号之前的内容
func afterColon(s string) string {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ParseCDPEntries 解析 "show cdp entry *" / "show cdp entry all" 的回显。
// 各条目以 "----" 分隔；IOS 的 "Entry address(es)" 与 NX-OS 的 "Interface address(es)" 均只取第一个地址。
func ParseCDPEntries(out string) []NeighborEntry {
	var (
		entries   []NeighborEntry
		cur       NeighborEntry
		seenFirst bool
		needIP    = true
	)
	flush := func() {
		if cur != (NeighborEntry{}) {
			entries = append(entries, cur)
		}
		cur = NeighborEntry{}
		needIP = true
	}

	for _, line := range SplitLines(out) {
		switch {
		case strings.Contains(line, "----") && !seenFirst:
			seenFirst = true
		case strings.Contains(line, "Device ID"):
			cur.DeviceID = afterColon(line)
		case strings.Contains(line, "IP") && strings.Contains(line, "ddress") && needIP:
			// 后续的管理地址不覆盖
			cur.Address = afterColon(line)
			needIP = false
		case strings.Contains(line, "Platform"):
			cur.Platform = afterColon(strings.Split(line, ",")[0])
		case strings.Contains(line, "Interface"):
			for i, part := range strings.Split(line, ",") {
				switch i {
				case 0:
					cur.LocalInterface = AbbreviateInterface(afterColon(part))
				case 1:
					cur.PortID = AbbreviateInterface(afterColon(part))
				}
			}
		case strings.Contains(line, "----"):
			flush()
		}
	}
	flush()
	return entries
}
