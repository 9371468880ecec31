// Package parity 度量编辑视图快照与服务端渲染之间的像素差异。
// 两条渲染路径有已知差异（三行截断、圆角、模糊、边框），这里只给出统计量，不做判定。
package parity

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ByLCY/memegen/capture"
	"github.com/ByLCY/memegen/layout"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/templates"
)

// Report 汇总逐像素差异，数值单位为 8 位通道值（0..255）。
type Report struct {
	Pixels    int
	MeanAbs   float64 // 三通道平均绝对误差的均值
	StdDev    float64
	P99       float64
	Max       float64
	Differing float64 // 误差超过 Threshold 的像素占比
}

// Threshold 是判定像素“不同”的平均通道误差。
const Threshold = 16.0

func (r Report) String() string {
	return fmt.Sprintf("pixels=%d mae=%.2f sd=%.2f p99=%.1f max=%.1f differing=%.2f%%",
		r.Pixels, r.MeanAbs, r.StdDev, r.P99, r.Max, r.Differing*100)
}

// Compare 逐像素比较两张同尺寸图片（按各自 Bounds 左上角对齐）。
func Compare(a, b image.Image) (Report, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return Report{}, fmt.Errorf("图片尺寸不一致: %v vs %v", ab.Size(), bb.Size())
	}
	return CompareRegion(a, b, image.Rect(0, 0, ab.Dx(), ab.Dy()))
}

// CompareRegion 只比较 r 覆盖的像素，r 以图片左上角为原点。
func CompareRegion(a, b image.Image, r image.Rectangle) (Report, error) {
	ab, bb := a.Bounds(), b.Bounds()
	r = r.Intersect(image.Rect(0, 0, min(ab.Dx(), bb.Dx()), min(ab.Dy(), bb.Dy())))
	if r.Empty() {
		return Report{}, fmt.Errorf("比较区域为空")
	}
	diffs := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			pa := color.NRGBAModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y)).(color.NRGBA)
			pb := color.NRGBAModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y)).(color.NRGBA)
			diffs = append(diffs, (absDiff(pa.R, pb.R)+absDiff(pa.G, pb.G)+absDiff(pa.B, pb.B))/3)
		}
	}

	rep := Report{Pixels: len(diffs)}
	rep.MeanAbs, rep.StdDev = stat.MeanStdDev(diffs, nil)
	rep.Max = floats.Max(diffs)
	slices.Sort(diffs)
	rep.P99 = stat.Quantile(0.99, stat.Empirical, diffs, nil)
	// diffs 已排序，第一个超过阈值的位置即为分界
	idx, _ := slices.BinarySearch(diffs, Threshold+1e-9)
	rep.Differing = float64(len(diffs)-idx) / float64(len(diffs))
	return rep, nil
}

func absDiff(a, b uint8) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}

// Measure 对同一布局分别做视图快照与服务端合成，并比较两者在 800×800 画布上的结果。
// req 的坐标处于视图的显示坐标系。
func Measure(ctx context.Context, view capture.Node, r *canvasrenderer.Renderer, req layout.Request) (Report, error) {
	size := view.Size()
	if size <= 0 {
		return Report{}, fmt.Errorf("视图尺寸非法: %g", size)
	}
	uri, err := capture.Capture(ctx, view, capture.Options{PixelRatio: layout.CanvasSize / size, CacheBust: true})
	if err != nil {
		return Report{}, err
	}
	data, err := templates.DecodeDataURI(uri)
	if err != nil {
		return Report{}, err
	}
	client, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Report{}, fmt.Errorf("解码视图快照失败: %w", err)
	}

	req.DisplaySize = size
	c, err := r.Compose(ctx, req)
	if err != nil {
		return Report{}, err
	}
	return Compare(client, canvasrenderer.Rasterize(c, 1))
}
