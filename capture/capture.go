// Package capture 把编辑视图快照为 PNG data URI，用于预览与分享。
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"sync"

	"github.com/tdewolff/canvas"

	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
)

// ErrCaptureFailed 表示快照过程失败（模板加载、绘制或编码）。
var ErrCaptureFailed = errors.New("capture failed")

const dataURIPrefix = "data:image/png;base64,"

// Node 是可被快照的视觉树根节点。
type Node interface {
	// Size 返回正方形视图的边长（像素）。
	Size() float64
	Draw(ctx context.Context, c *canvas.Context, opts Options) error
	// StripDecorations 临时移除调试装饰，返回的函数用于恢复。
	StripDecorations() (restore func())
}

// Options 控制快照分辨率与模板缓存。
type Options struct {
	PixelRatio float64
	CacheBust  bool
}

var (
	// PreviewOptions 用于编辑时刷新预览。
	PreviewOptions = Options{PixelRatio: 1, CacheBust: true}
	// ShareOptions 用于分享，使用 2 倍分辨率。
	ShareOptions = Options{PixelRatio: 2, CacheBust: true}
)

func (o Options) pixelRatio() float64 {
	if o.PixelRatio <= 0 {
		return 1
	}
	return o.PixelRatio
}

// Capture 去掉装饰后绘制 root，返回 PNG data URI；无论成功与否都会恢复装饰。
func Capture(ctx context.Context, root Node, opts Options) (uri string, err error) {
	if root == nil {
		return "", fmt.Errorf("%w: 没有可快照的视图", ErrCaptureFailed)
	}
	restore := root.StripDecorations()
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			uri, err = "", fmt.Errorf("%w: %v", ErrCaptureFailed, r)
		}
	}()

	size := root.Size()
	c := canvas.New(size, size)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV)
	if err := root.Draw(ctx, cctx, opts); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvasrenderer.Rasterize(c, opts.pixelRatio())); err != nil {
		return "", fmt.Errorf("%w: 编码 PNG 失败: %w", ErrCaptureFailed, err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Preview 保存最近一次成功的快照；失败时保留旧值。
type Preview struct {
	mu    sync.Mutex
	value string
}

// Refresh 重新快照 root。出错时返回错误，预览保持不变。
func (p *Preview) Refresh(ctx context.Context, root Node) error {
	uri, err := Capture(ctx, root, PreviewOptions)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.value = uri
	p.mu.Unlock()
	return nil
}

// Value 返回当前预览，尚未成功快照时为空字符串。
func (p *Preview) Value() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}
