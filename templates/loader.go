// Package templates resolves the five background templates and decodes them.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/ByLCY/memegen/layout"
)

// ErrTemplateLoad 表示模板或远程图片无法读取或解码。
var ErrTemplateLoad = errors.New("templates: 模板加载失败")

// maxImageBytes 限制单张远程图片的大小。
const maxImageBytes = 20 << 20

// Loader 根据 1 开始的编号加载模板图片。
type Loader interface {
	Load(ctx context.Context, n int) (image.Image, error)
}

// Name 返回模板文件名，例如 meme1.jpg。
func Name(n int) string { return fmt.Sprintf("meme%d.jpg", n) }

// New 根据 src 选择实现：http(s) 开头使用 HTTPLoader，否则视为本地目录。
func New(src string, client *http.Client) Loader {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return &HTTPLoader{BaseURL: src, Client: client}
	}
	return &DirLoader{Dir: src}
}

// HTTPLoader 从公开的基础 URL 下载模板。
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

// Load 实现 Loader。
func (l *HTTPLoader) Load(ctx context.Context, n int) (image.Image, error) {
	if err := checkIndex(n); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSuffix(l.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: 基础地址 %q 无效: %v", ErrTemplateLoad, l.BaseURL, err)
	}
	return l.Fetch(ctx, base.JoinPath(Name(n)).String())
}

// Fetch 下载并解码任意图片地址，供 OG 预览复用同一个 HTTP 客户端。
func (l *HTTPLoader) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	return Fetch(ctx, l.client(), rawURL)
}

func (l *HTTPLoader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

// Fetch 用给定客户端下载并解码图片；data: URI 直接在进程内解码。
// 非 2xx 状态、网络错误与解码错误都包装为 ErrTemplateLoad。
func Fetch(ctx context.Context, client *http.Client, rawURL string) (image.Image, error) {
	if IsDataURI(rawURL) {
		data, err := DecodeDataURI(rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
		}
		if len(data) > maxImageBytes {
			return nil, fmt.Errorf("%w: data URI 超过 %d 字节", ErrTemplateLoad, maxImageBytes)
		}
		return decode(bytes.NewReader(data), "data URI")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: 不支持的图片地址 %q", ErrTemplateLoad, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateLoad, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: 下载 %s 失败: %v", ErrTemplateLoad, rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: 下载 %s 返回状态 %d", ErrTemplateLoad, rawURL, resp.StatusCode)
	}
	return decode(io.LimitReader(resp.Body, maxImageBytes), rawURL)
}

// DirLoader 从本地目录读取 meme{n}.jpg。
type DirLoader struct {
	Dir string
}

// Load 实现 Loader。
func (l *DirLoader) Load(_ context.Context, n int) (image.Image, error) {
	if err := checkIndex(n); err != nil {
		return nil, err
	}
	path := filepath.Join(l.Dir, Name(n))
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取模板 %s 失败: %v", ErrTemplateLoad, path, err)
	}
	defer file.Close()
	return decode(file, path)
}

// Static 是内存中的模板集合，键为模板编号。
type Static map[int]image.Image

// Load 实现 Loader。
func (s Static) Load(_ context.Context, n int) (image.Image, error) {
	img, ok := s[n]
	if !ok {
		return nil, fmt.Errorf("%w: 模板 %d 不存在", ErrTemplateLoad, n)
	}
	return img, nil
}

func decode(r io.Reader, name string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: 解码图片 %s 失败: %v", ErrTemplateLoad, name, err)
	}
	return img, nil
}

func checkIndex(n int) error {
	if n < 1 || n > layout.TemplateCount {
		return fmt.Errorf("%w: 模板编号 %d 不在 1..%d 范围内", layout.ErrInvalidRequest, n, layout.TemplateCount)
	}
	return nil
}
