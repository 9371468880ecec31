package capture

import (
	"image"
	"image/color"
	"math"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/draw"

	"github.com/ByLCY/memegen/layout"
)

// coverFit 按 object-fit: cover 把模板缩放到 side×side：保持比例，居中裁掉多余部分。
func coverFit(src image.Image, side int) *image.RGBA {
	if side < 1 {
		side = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return dst
	}
	crop := min(w, h)
	sr := image.Rect(b.Min.X+(w-crop)/2, b.Min.Y+(h-crop)/2, 0, 0)
	sr.Max = sr.Min.Add(image.Pt(crop, crop))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst
}

// blurPatch 取出 r 区域并做近似高斯模糊：先按 radius 缩小再放大回原尺寸。
func blurPatch(src *image.RGBA, r image.Rectangle, radius int) *image.RGBA {
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return nil
	}
	if radius < 1 {
		radius = 1
	}
	small := image.NewRGBA(image.Rect(0, 0, max(1, r.Dx()/radius), max(1, r.Dy()/radius)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, r, draw.Src, nil)
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.BiLinear.Scale(out, out.Bounds(), small, small.Bounds(), draw.Src, nil)
	return out
}

// roundCorners 把圆角以外的像素置为透明。
func roundCorners(img *image.RGBA, radius float64) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	radius = math.Min(radius, math.Min(w, h)/2)
	if radius <= 0 {
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		py := float64(y-b.Min.Y) + 0.5
		for x := b.Min.X; x < b.Max.X; x++ {
			px := float64(x-b.Min.X) + 0.5
			cx := math.Max(radius-px, px-(w-radius))
			cy := math.Max(radius-py, py-(h-radius))
			if cx <= 0 || cy <= 0 {
				continue
			}
			if cx*cx+cy*cy > radius*radius {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
}

func strokeRounded(c *canvas.Context, x, y, w, h float64, col color.Color, width float64) {
	c.Push()
	c.SetFillColor(canvas.Transparent)
	c.SetStrokeColor(col)
	c.SetStrokeWidth(width)
	c.DrawPath(x, y, canvas.RoundedRectangle(w, h, cornerRadius))
	c.Pop()
}

// drawAffordances 在文本框右侧画出删除（垃圾桶）与缩放按钮，只在 hover 时可见。
func drawAffordances(c *canvas.Context, a layout.Annotation) {
	left := a.X + a.Width - paddingX - affordanceW
	top := a.Y + a.Height/2 - iconSize/2
	glyph := 16.0
	inset := (iconSize - glyph) / 2

	c.Push()
	defer c.Pop()
	c.SetFillColor(canvas.Transparent)
	c.SetStrokeWidth(1.5)

	// 垃圾桶：桶身 + 盖子
	c.SetStrokeColor(deleteColor)
	bx, by := left+inset, top+inset
	c.DrawPath(bx+3, by+4, canvas.Rectangle(glyph-6, glyph-4))
	lid := &canvas.Path{}
	lid.MoveTo(0, 0)
	lid.LineTo(glyph, 0)
	c.DrawPath(bx, by+3, lid)

	// 缩放：对角线与两端的直角
	c.SetStrokeColor(resizeColor)
	rx, ry := left+iconSize+iconGap+inset, top+inset
	arrow := &canvas.Path{}
	arrow.MoveTo(0, glyph)
	arrow.LineTo(glyph, 0)
	arrow.MoveTo(glyph-5, 0)
	arrow.LineTo(glyph, 0)
	arrow.LineTo(glyph, 5)
	arrow.MoveTo(0, glyph-5)
	arrow.LineTo(0, glyph)
	arrow.LineTo(5, glyph)
	c.DrawPath(rx, ry, arrow)
}
