// Package tika 提供了一个与 Apache Tika 服务器交互的文本提取客户端。
package tika

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"unicode/utf8"

	"doc-vector-go/internal/config"
)

// ErrBinaryOutput 表示提取结果看起来是二进制噪声而非文本。
// 调用方应将其视为提取失败并存储占位记录，而不是索引噪声。
var ErrBinaryOutput = errors.New("tika: extracted output looks binary")

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{serverURL: cfg.ServerURL}
}

// ExtractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取文本。
// 二进制样的产出返回 ErrBinaryOutput。
func (c *Client) ExtractText(fileReader io.Reader, fileName string) (string, error) {
	contentType := detectMimeType(fileName)

	req, err := http.NewRequest("PUT", c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败: %w", err)
	}

	text := buf.String()
	if LooksBinary(text) {
		return "", ErrBinaryOutput
	}
	return text, nil
}

// LooksBinary 判断文本是否大部分为不可打印字符或非法 UTF-8。
func LooksBinary(text string) bool {
	if text == "" {
		return false
	}
	if !utf8.ValidString(text) {
		return true
	}
	var nonPrintable, total int
	for _, r := range text {
		total++
		if r == utf8.RuneError || (r < 32 && r != '\n' && r != '\r' && r != '\t') {
			nonPrintable++
		}
	}
	// 超过 10% 的控制字符即视为二进制噪声
	return total > 0 && nonPrintable*10 > total
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
