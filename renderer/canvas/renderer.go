package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/memegen/fonts"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
	"github.com/ByLCY/memegen/templates"
)

// DefaultQuality 是 JPEG 编码质量。
const DefaultQuality = 90

// backdrop 是文本框背后的半透明白色底。
var backdrop = canvas.RGBA(1, 1, 1, 0.9)

// Renderer draws requests on an 800×800 canvas via github.com/tdewolff/canvas.
// One canvas unit is rendered as one output pixel.
type Renderer struct {
	loader   templates.Loader
	fontSrc  string
	viewFont string
	quality  int

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	Loader   templates.Loader
	FontSrc  string // server-side text font, default embed:Go-Regular
	ViewFont string // semibold font used by the editor view, default embed:Go-Medium
	Quality  int    // JPEG quality 1..100
}

// NewRenderer creates a renderer that resolves templates through loader.
func NewRenderer(loader templates.Loader) *Renderer {
	return NewRendererWithOptions(Options{Loader: loader})
}

// NewRendererWithOptions creates a renderer with explicit fonts and quality.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		loader:       opts.Loader,
		fontSrc:      opts.FontSrc,
		viewFont:     opts.ViewFont,
		quality:      opts.Quality,
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	if r.fontSrc == "" {
		r.fontSrc = "embed:" + fonts.Regular
	}
	if r.viewFont == "" {
		r.viewFont = "embed:" + fonts.Medium
	}
	if r.quality <= 0 || r.quality > 100 {
		r.quality = DefaultQuality
	}
	return r
}

// Render 校验请求、加载模板、绘制并按 format 编码。
func (r *Renderer) Render(ctx context.Context, req layout.Request, format renderer.Format) ([]byte, error) {
	c, err := r.Compose(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.Encode(c, format, 1)
}

// Compose 在 800×800 画布上依次绘制模板与每个文本框，列表靠后的绘制在上层。
func (r *Renderer) Compose(ctx context.Context, req layout.Request) (*canvas.Canvas, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if r.loader == nil {
		return nil, fmt.Errorf("%w: 未配置模板加载器", templates.ErrTemplateLoad)
	}
	req = req.Canonical()

	tpl, err := r.loader.Load(ctx, req.MemeNumber)
	if err != nil {
		return nil, err
	}
	family, err := r.family(r.fontSrc)
	if err != nil {
		return nil, err
	}

	c := canvas.New(layout.CanvasSize, layout.CanvasSize)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与编辑器保持左上角为原点

	// 模板拉伸铺满整个画布
	cctx.FitImage(tpl, canvas.Rect{X0: 0, Y0: 0, X1: layout.CanvasSize, Y1: layout.CanvasSize}, canvas.ImageFill)

	for _, tb := range req.TextBoxes {
		drawTextBox(cctx, family, tb)
	}
	return c, nil
}

// drawTextBox 先画半透明底，再画单行居中文本。
// 这里不换行：过长的文本会溢出底框，与编辑视图的三行截断不同。
func drawTextBox(ctx *canvas.Context, family *canvas.FontFamily, tb layout.TextBox) {
	ctx.Push()
	defer ctx.Pop()

	// 底框只画画布内的部分
	if x, y, w, h, ok := layout.ClipRect(tb.X, tb.Y, tb.Width, tb.Height, 0, layout.CanvasSize); ok {
		ctx.SetFillColor(backdrop)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(x, y, canvas.Rectangle(w, h))
	}

	text := singleLine(tb.Text)
	if text == "" {
		return
	}
	face := family.Face(layout.PxToPt(tb.FontSize), canvas.Black, canvas.FontRegular, canvas.FontNormal)
	line := canvas.NewTextLine(face, text, canvas.Center)

	// 基线放在框的垂直中线下方 (ascent-descent)/2 处，相当于 textBaseline=middle。
	metrics := face.Metrics()
	baseline := tb.Y + tb.Height/2 + (metrics.Ascent-metrics.Descent)/2
	ctx.DrawText(tb.X+tb.Width/2, baseline, line)
}

// singleLine 把换行与制表符替换为空格，与 2D canvas 的 fillText 行为一致。
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}

// Rasterize 以 pixelRatio 倍分辨率把画布栅格化为 RGBA 图像。
func Rasterize(c *canvas.Canvas, pixelRatio float64) *image.RGBA {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return rasterizer.Draw(c, canvas.DPMM(pixelRatio), canvas.DefaultColorSpace)
}

// Encode 按格式输出画布。PDF 保持矢量，JPEG/PNG 先栅格化。
func (r *Renderer) Encode(c *canvas.Canvas, format renderer.Format, pixelRatio float64) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case renderer.PDF:
		w, h := c.Size()
		writer := pdf.New(&buf, w, h, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case renderer.PNG:
		if err := png.Encode(&buf, Rasterize(c, pixelRatio)); err != nil {
			return nil, fmt.Errorf("编码 PNG 失败: %w", err)
		}
	case renderer.JPEG, "":
		if err := jpeg.Encode(&buf, Rasterize(c, pixelRatio), &jpeg.Options{Quality: r.quality}); err != nil {
			return nil, fmt.Errorf("编码 JPEG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式 %q", format)
	}
	return buf.Bytes(), nil
}
