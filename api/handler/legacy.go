package handler

import "strings"

// DecodeLegacyLines 解码旧表单的附加配置：'+' 表示空格，'&' 表示换行；"0" 或空表示无
func DecodeLegacyLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return nil
	}
	s = strings.ReplaceAll(s, "+", " ")
	var lines []string
	for _, line := range strings.Split(s, "&") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// DecodeInterfaceName URL 中的接口名用 '-' 代替 '/'；只替换编号部分，保留 Port-channel 之类的名称
func DecodeInterfaceName(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, "0123456789")
	if i < 0 {
		return s
	}
	return s[:i] + strings.ReplaceAll(s[i:], "-", "/")
}

// DecodeInterfaceList 以 '&' 分隔的多个接口名
func DecodeInterfaceList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "&") {
		if part = DecodeInterfaceName(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
