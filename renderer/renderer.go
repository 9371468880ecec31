package renderer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ByLCY/memegen/layout"
)

// Format 是渲染输出的文件格式。
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	PDF  Format = "pdf"
)

// ParseFormat 解析命令行/查询参数中的格式名，空字符串视为 JPEG。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "pdf":
		return PDF, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q", s)
	}
}

// ContentType 返回 HTTP 响应使用的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case PDF:
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// Filename 返回下载时建议的文件名，例如 meme.jpg。
func (f Format) Filename() string {
	switch f {
	case PNG:
		return "meme.png"
	case PDF:
		return "meme.pdf"
	default:
		return "meme.jpg"
	}
}

// Renderer 将渲染请求输出为最终文件（JPEG/PNG/PDF 字节）。
// 实现必须是无状态的：并发请求之间不共享可变的渲染结果。
type Renderer interface {
	Render(ctx context.Context, req layout.Request, format Format) ([]byte, error)
}
