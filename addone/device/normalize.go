package device

import (
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLen 描述截断长度
const MaxDescriptionLen = 25

// EmptyField 缺省字段占位
const EmptyField = "--"

// CollapseDoubleSpaces 将连续两个及以上空格折叠为单个逗号。
// 奇数个空格会留下一个空格，多词字段内的单空格保持不变；重复调用结果不变。
func CollapseDoubleSpaces(s string) string {
	s = strings.ReplaceAll(s, "  ", ",,")
	for strings.Contains(s, ",,") {
		s = strings.ReplaceAll(s, ",,", ",")
	}
	return s
}

// TruncateDescription 超过 25 个字符截断并追加 ".."，空值返回 "--"
func TruncateDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyField
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return string([]rune(s)[:MaxDescriptionLen]) + ".."
	}
	return s
}

var cdpAbbrev = strings.NewReplacer(
	"TenGigabitEthernet", "Ten ",
	"GigabitEthernet", "Gig ",
	"FastEthernet", "Fas ",
	"Ethernet", "Eth ",
)

// AbbreviateInterface CDP 输出中的接口名缩写，例如 GigabitEthernet2/0/12 -> "Gig 2/0/12"
func AbbreviateInterface(name string) string {
	return cdpAbbrev.Replace(name)
}

// ContainsInvalidInput 设备是否拒绝了命令
func ContainsInvalidInput(out string) bool {
	return strings.Contains(out, "Invalid input detected")
}

// ContainsSkipped 连接失败时的 "skipped" 标记
func ContainsSkipped(out string) bool {
	return strings.Contains(out, "skipped")
}

// SplitLines 统一换行符后按行切分
func SplitLines(out string) []string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	return strings.Split(out, "\n")
}

// NormalizeStatus 将设备状态文本归一为 up/down/admin-down
func NormalizeStatus(raw string) string {
	raw = strings.ToLower(raw)
	switch {
	case strings.Contains(raw, "admin"):
		return StatusAdminDown
	case strings.Contains(raw, "up"):
		return StatusUp
	default:
		return StatusDown
	}
}

// NormalizeProtocol 协议状态只区分 up/down
func NormalizeProtocol(raw string) string {
	if strings.Contains(strings.ToLower(raw), "up") {
		return StatusUp
	}
	return StatusDown
}
