package util

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUTF8(t *testing.T) {
	assert.Equal(t, "", EnsureUTF8Bytes(nil))
	assert.Equal(t, "Gi1/0/1 up", EnsureUTF8("Gi1/0/1 up"))
	// 0xE9 为 Latin-1 的 é
	assert.Equal(t, "café", EnsureUTF8Bytes([]byte{'c', 'a', 'f', 0xE9}))
}

func TestCharsetReader(t *testing.T) {
	r, err := CharsetReader("ISO-8859-1", strings.NewReader("d\xe9sc"))
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "désc", string(b))

	r, err = CharsetReader("UTF-8", strings.NewReader("plain"))
	require.NoError(t, err)
	b, _ = io.ReadAll(r)
	assert.Equal(t, "plain", string(b))

	_, err = CharsetReader("no-such-charset", strings.NewReader(""))
	assert.Error(t, err)
}
