package canvasrenderer

import (
	"image"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
)

// ComposeCard 生成社交卡片：白底 800×800，图片按 contain 方式居中完整显示。
func ComposeCard(img image.Image) *canvas.Canvas {
	c := canvas.New(layout.CanvasSize, layout.CanvasSize)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(layout.CanvasSize, layout.CanvasSize))
	ctx.FitImage(img, canvas.Rect{X0: 0, Y0: 0, X1: layout.CanvasSize, Y1: layout.CanvasSize}, canvas.ImageContain)
	return c
}

// RenderCard 把 ComposeCard 的结果编码为 PNG。
func (r *Renderer) RenderCard(img image.Image) ([]byte, error) {
	return r.Encode(ComposeCard(img), renderer.PNG, 1)
}
