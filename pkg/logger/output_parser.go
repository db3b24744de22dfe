package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputLines 命令回显的头部与尾部行
type OutputLines struct {
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
	Total     int      `json:"total"`
}

// ParseOutputLines 提取回显首尾各 maxLines 行，空行保留
func ParseOutputLines(output string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return OutputLines{}
	}

	lines := strings.Split(output, "\n")
	total := len(lines)
	if total <= maxLines {
		head := append([]string(nil), lines...)
		return OutputLines{HeadLines: head, TailLines: head, Total: total}
	}
	return OutputLines{
		HeadLines: append([]string(nil), lines[:maxLines]...),
		TailLines: append([]string(nil), lines[total-maxLines:]...),
		Total:     total,
	}
}

// FormatOutputLines 格式化为单行日志文本
func FormatOutputLines(lines OutputLines) string {
	var parts []string
	if len(lines.HeadLines) > 0 {
		parts = append(parts, "head-lines: ["+strings.Join(lines.HeadLines, " ⟩ ")+"]")
	}
	if len(lines.TailLines) > 0 && lines.Total > len(lines.HeadLines) {
		parts = append(parts, "tail-lines: ["+strings.Join(lines.TailLines, " ⟩ ")+"]")
	}
	return strings.Join(parts, ", ")
}

// DebugCommandOutput 在 debug 级别记录命令回显摘要
func DebugCommandOutput(command string, output string, maxLines int) {
	if GetLogger().Level < logrus.DebugLevel {
		return
	}
	lines := ParseOutputLines(output, maxLines)
	if lines.Total == 0 {
		return
	}
	entry([]interface{}{"command", command, "lines", lines.Total}).Debug(FormatOutputLines(lines))
}
