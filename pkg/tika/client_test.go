package tika

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksBinary(t *testing.T) {
	assert.False(t, LooksBinary(""))
	assert.False(t, LooksBinary("plain readable text\nwith lines\tand tabs\r\n"))
	assert.False(t, LooksBinary("中文文本也是合法的"))

	// 非法 UTF-8
	assert.True(t, LooksBinary(string([]byte{0xff, 0xfe, 0x00, 0x41})))

	// 控制字符占比超过 10%
	noisy := strings.Repeat("a", 10) + strings.Repeat("\x01", 5)
	assert.True(t, LooksBinary(noisy))

	// 少量控制字符可以容忍
	mostlyClean := strings.Repeat("a", 100) + "\x01"
	assert.False(t, LooksBinary(mostlyClean))
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", detectMimeType("file.pdf"))
	assert.Equal(t, "application/octet-stream", detectMimeType("file"))
	assert.Equal(t, "application/octet-stream", detectMimeType("file.unknownext"))
}
