package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsPairs(t *testing.T) {
	f := fields([]interface{}{"host", "sw1", "error", errors.New("boom"), "dangling"})
	assert.Equal(t, "sw1", f["host"])
	assert.Equal(t, "boom", f["error"], "error 值应转为字符串")
	assert.Equal(t, "dangling", f["extra"])
	assert.Nil(t, fields(nil))
}

func TestInitJSONOutput(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: "console"}))
	buf := &bytes.Buffer{}
	GetLogger().SetOutput(buf)

	Info("session opened", "device_id", "42")
	assert.Contains(t, buf.String(), `"device_id":"42"`)
	assert.Contains(t, buf.String(), `"msg":"session opened"`)
	assert.Equal(t, logrus.DebugLevel, GetLogger().Level)
}

func TestParseOutputLines(t *testing.T) {
	out := "l1\r\nl2\r\nl3\r\nl4\r\nl5\r\nl6\r\n"
	lines := ParseOutputLines(out, 2)
	assert.Equal(t, []string{"l1", "l2"}, lines.HeadLines)
	assert.Equal(t, []string{"l5", "l6"}, lines.TailLines)
	assert.Equal(t, 6, lines.Total)
	assert.Contains(t, FormatOutputLines(lines), "tail-lines")

	short := ParseOutputLines("only", 5)
	assert.Equal(t, short.HeadLines, short.TailLines)
	assert.NotContains(t, FormatOutputLines(short), "tail-lines", "行数不足时只输出一次")

	assert.Equal(t, 0, ParseOutputLines("\r\n", 5).Total)
}
