package util

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// legacyEncodings 设备回显常见的非 UTF-8 编码，按尝试顺序排列
var legacyEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
	simplifiedchinese.GB18030,
}

// EnsureUTF8Bytes 将设备回显转换为 UTF-8；已是 UTF-8 则原样返回
func EnsureUTF8Bytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	for _, enc := range legacyEncodings {
		if s, ok := tryDecode(enc, b); ok {
			return s
		}
	}
	return strings.ToValidUTF8(string(b), "?")
}

// EnsureUTF8 字符串版本
func EnsureUTF8(s string) string {
	return EnsureUTF8Bytes([]byte(s))
}

// CharsetReader 供 encoding/xml 解码器使用，NX-OS 的 XML 回显声明 ISO-8859-1
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return input, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), enc.NewDecoder()))
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}
