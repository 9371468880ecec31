package parity

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ByLCY/memegen/capture"
	"github.com/ByLCY/memegen/layout"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/templates"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompareIdentical(t *testing.T) {
	img := solid(10, 10, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	rep, err := Compare(img, img)
	if err != nil {
		t.Fatalf("Compare 失败: %v", err)
	}
	if rep.Pixels != 100 || rep.MeanAbs != 0 || rep.Max != 0 || rep.Differing != 0 {
		t.Fatalf("相同图片应无差异: %+v", rep)
	}
}

func TestCompareCountsDifferences(t *testing.T) {
	a := solid(10, 10, color.RGBA{A: 255})
	b := solid(10, 10, color.RGBA{A: 255})
	// 四分之一像素全白
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			b.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	rep, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare 失败: %v", err)
	}
	if math.Abs(rep.MeanAbs-63.75) > 1e-9 || rep.Max != 255 || math.Abs(rep.Differing-0.25) > 1e-9 {
		t.Fatalf("统计量不符: %+v", rep)
	}

	region, err := CompareRegion(a, b, image.Rect(5, 5, 10, 10))
	if err != nil || region.MeanAbs != 0 {
		t.Fatalf("区域外的差异不应计入: %+v err=%v", region, err)
	}
}

func TestCompareSizeMismatch(t *testing.T) {
	if _, err := Compare(solid(4, 4, color.RGBA{}), solid(5, 4, color.RGBA{})); err == nil {
		t.Fatalf("尺寸不一致应报错")
	}
}

// TestMeasureClientServerAgree 单行短文本时两条渲染路径只在装饰细节上有差别。
func TestMeasureClientServerAgree(t *testing.T) {
	set := templates.Static{}
	for n := 1; n <= layout.TemplateCount; n++ {
		set[n] = solid(64, 64, color.RGBA{R: 200, G: 90, B: 40, A: 255})
	}
	r := canvasrenderer.NewRenderer(set)

	e := layout.NewEditor()
	a, _ := e.AddAnnotation("HI")
	e.MoveAnnotation(a.ID, 100, 150)
	view := capture.NewView(e, set, r, 400)

	rep, err := Measure(context.Background(), view, r, e.Request())
	if err != nil {
		t.Fatalf("Measure 失败: %v", err)
	}
	if rep.Pixels != 800*800 {
		t.Fatalf("应比较整张 800x800 画布，实际 %d 像素", rep.Pixels)
	}
	if rep.MeanAbs > 8 || rep.Differing > 0.05 {
		t.Fatalf("两条渲染路径差异过大: %s", rep)
	}
}
