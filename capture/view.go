package capture

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/templates"
)

// 视图样式常量（像素），对应编辑页面上文本框的外观。
const (
	cornerRadius = 8.0
	paddingX     = 12.0
	paddingY     = 8.0
	iconSize     = 24.0
	iconGap      = 4.0
	affordanceW  = 2*iconSize + iconGap // 删除/缩放按钮始终占位，只是 hover 前不可见
	blurRadius   = 4                    // backdrop-blur-sm
	lineFactor   = 1.2
	maxLines     = 3
	ringWidth    = 2.0
	clipMargin   = cornerRadius + 2*ringWidth
)

var (
	frameColor    = canvas.White
	templateEdge  = canvas.Hex("#e5e7eb")
	boxFill       = canvas.RGBA(1, 1, 1, 0.9)
	boxBorder     = canvas.Hex("#d1d5db")
	selectionRing = canvas.Hex("#3b82f6")
	deleteColor   = canvas.Hex("#ef4444")
	resizeColor   = canvas.Hex("#6b7280")
)

// Typesetter 为视图断行并提供绘制文本的字体面，字号单位为像素。
// renderer/canvas.Renderer 实现了该接口。
type Typesetter interface {
	layout.Typesetter
	ViewFace(sizePx float64, col color.Color) (*canvas.FontFace, error)
}

// View 是编辑器在屏幕上的视觉树：模板、带样式的文本框以及调试用装饰
// （选中描边、hover 时出现的删除/缩放按钮）。
type View struct {
	editor      *layout.Editor
	loader      templates.Loader
	fonts       Typesetter
	displaySize float64

	mu          sync.Mutex
	decorations bool
	hovered     int64
	cache       map[int]image.Image
}

var _ Node = (*View)(nil)

// NewView 创建视图；displaySize 为屏幕上正方形画布的边长，<=0 时使用 800。
func NewView(editor *layout.Editor, loader templates.Loader, fonts Typesetter, displaySize float64) *View {
	if displaySize <= 0 {
		displaySize = layout.CanvasSize
	}
	return &View{
		editor:      editor,
		loader:      loader,
		fonts:       fonts,
		displaySize: displaySize,
		decorations: true,
		cache:       map[int]image.Image{},
	}
}

// Size 返回视图边长（像素）。
func (v *View) Size() float64 { return v.displaySize }

// Hover 标记鼠标所在的文本框，0 表示没有。
func (v *View) Hover(id int64) {
	v.mu.Lock()
	v.hovered = id
	v.mu.Unlock()
}

// Decorations 报告当前是否绘制调试装饰。
func (v *View) Decorations() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.decorations
}

// StripDecorations 隐藏装饰并返回恢复函数；恢复到调用前的状态。
func (v *View) StripDecorations() (restore func()) {
	v.mu.Lock()
	prev := v.decorations
	v.decorations = false
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		v.decorations = prev
		v.mu.Unlock()
	}
}

// Draw 把视图绘制到 ctx（CartesianIV，左上角为原点）。
// opts.CacheBust 为 true 时重新加载模板；模板按 opts.PixelRatio 倍分辨率缩放。
func (v *View) Draw(ctx context.Context, c *canvas.Context, opts Options) error {
	tpl, err := v.template(ctx, opts.CacheBust)
	if err != nil {
		return err
	}
	v.mu.Lock()
	decorations, hovered := v.decorations, v.hovered
	v.mu.Unlock()

	size := v.displaySize
	side := int(math.Round(size * opts.pixelRatio()))
	shown := coverFit(tpl, side)

	c.DrawImage(0, 0, shown, canvas.DPMM(float64(side)/size))
	// 圆角外的区域露出页面白底，再描一圈浅灰边框
	c.Push()
	c.SetFillRule(canvas.EvenOdd)
	c.SetFillColor(frameColor)
	c.SetStrokeColor(canvas.Transparent)
	c.DrawPath(0, 0, canvas.Rectangle(size, size).Append(canvas.RoundedRectangle(size, size, cornerRadius)))
	c.Pop()
	strokeRounded(c, 0, 0, size, size, templateEdge, 1)

	selected, _ := v.editor.Selected()
	for _, a := range v.editor.Annotations() {
		box, ok := v.visibleBox(a)
		if !ok {
			continue
		}
		if err := v.drawAnnotation(c, shown, a, box); err != nil {
			return err
		}
		if !decorations {
			continue
		}
		if a.ID == selected {
			strokeRounded(c, box.X-ringWidth, box.Y-ringWidth, box.Width+2*ringWidth, box.Height+2*ringWidth, selectionRing, ringWidth)
		}
		if a.ID == hovered {
			drawAffordances(c, box)
		}
	}
	return nil
}

// visibleBox 把标注的几何裁剪到视图外扩 clipMargin 的范围内。
// 裁剪边落在视图之外，圆角与描边都不可见。
func (v *View) visibleBox(a layout.Annotation) (layout.Annotation, bool) {
	x, y, w, h, ok := layout.ClipRect(a.X, a.Y, a.Width, a.Height, -clipMargin, v.displaySize+clipMargin)
	if !ok {
		return a, false
	}
	a.X, a.Y, a.Width, a.Height = x, y, w, h
	return a, true
}

func (v *View) template(ctx context.Context, cacheBust bool) (image.Image, error) {
	n := v.editor.Template()
	v.mu.Lock()
	img, ok := v.cache[n]
	v.mu.Unlock()
	if ok && !cacheBust {
		return img, nil
	}
	img, err := v.loader.Load(ctx, n)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.cache[n] = img
	v.mu.Unlock()
	return img, nil
}

// drawAnnotation 绘制背景模糊、半透明圆角底、边框与最多三行的居中文本。
// box 是裁剪到可见范围的几何，文本仍按 a 的完整几何排版，只画落在视图内的行。
func (v *View) drawAnnotation(c *canvas.Context, shown *image.RGBA, a, box layout.Annotation) error {
	scale := float64(shown.Bounds().Dx()) / v.displaySize
	patchRect := image.Rect(
		int(math.Floor(box.X*scale)), int(math.Floor(box.Y*scale)),
		int(math.Ceil((box.X+box.Width)*scale)), int(math.Ceil((box.Y+box.Height)*scale)),
	)
	if patch := blurPatch(shown, patchRect, blurRadius); patch != nil {
		roundCorners(patch, cornerRadius*scale)
		c.DrawImage(float64(patchRect.Min.X)/scale, float64(patchRect.Min.Y)/scale, patch, canvas.DPMM(scale))
	}

	c.Push()
	c.SetFillColor(boxFill)
	c.SetStrokeColor(boxBorder)
	c.SetStrokeWidth(1)
	c.DrawPath(box.X, box.Y, canvas.RoundedRectangle(box.Width, box.Height, cornerRadius))
	c.Pop()

	textWidth := math.Max(a.Width-2*paddingX-affordanceW, 1)
	lineHeight := a.FontSize * lineFactor
	lines, err := v.fonts.LayoutLines(a.Text, textWidth, a.FontSize)
	if err != nil {
		return err
	}
	face, err := v.fonts.ViewFace(a.FontSize, canvas.Black)
	if err != nil {
		return err
	}
	lines, _ = layout.ClampLines(lines, maxLines, func(s string) bool {
		return face.TextWidth(s) <= textWidth
	})

	metrics := face.Metrics()
	centerX := a.X + paddingX + textWidth/2
	// 文本块最高为内容区高度，在框内垂直居中；overflow: hidden 时只画至少露出一半的行
	blockH := math.Min(float64(len(lines))*lineHeight, math.Max(a.Height-2*paddingY, lineHeight))
	top := a.Y + a.Height/2 - blockH/2
	for i, ln := range lines {
		lineTop := top + float64(i)*lineHeight
		if lineTop+lineHeight/2 > top+blockH {
			break
		}
		if lineTop > v.displaySize || lineTop+lineHeight < 0 {
			continue
		}
		half := face.TextWidth(ln.Content) / 2
		if centerX+half < 0 || centerX-half > v.displaySize {
			continue
		}
		baseline := lineTop + lineHeight/2 + (metrics.Ascent-metrics.Descent)/2
		c.DrawText(centerX, baseline, canvas.NewTextLine(face, ln.Content, canvas.Center))
	}
	return nil
}
