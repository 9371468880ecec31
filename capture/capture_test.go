package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/ByLCY/memegen/layout"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/templates"
)

var templateColor = color.RGBA{R: 30, G: 120, B: 60, A: 255}

func solidTemplates() templates.Static {
	set := templates.Static{}
	for n := 1; n <= layout.TemplateCount; n++ {
		img := image.NewRGBA(image.Rect(0, 0, 120, 80))
		for y := 0; y < 80; y++ {
			for x := 0; x < 120; x++ {
				img.SetRGBA(x, y, templateColor)
			}
		}
		set[n] = img
	}
	return set
}

func newView(t *testing.T, loader templates.Loader) (*View, *layout.Editor) {
	t.Helper()
	e := layout.NewEditor()
	a, ok := e.AddAnnotation("Ship dark mode")
	if !ok {
		t.Fatalf("AddAnnotation 失败")
	}
	e.SelectAnnotation(a.ID)
	fonts := canvasrenderer.NewRenderer(loader)
	return NewView(e, loader, fonts, 0), e
}

func decode(t *testing.T, uri string) image.Image {
	t.Helper()
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("不是 PNG data URI: %.40q", uri)
	}
	data, err := templates.DecodeDataURI(uri)
	if err != nil {
		t.Fatalf("templates.DecodeDataURI: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("PNG 解码失败: %v", err)
	}
	return img
}

func TestCaptureProducesPNGAtPixelRatio(t *testing.T) {
	v, _ := newView(t, solidTemplates())
	for _, opts := range []Options{PreviewOptions, ShareOptions} {
		uri, err := Capture(context.Background(), v, opts)
		if err != nil {
			t.Fatalf("Capture(%+v) 失败: %v", opts, err)
		}
		img := decode(t, uri)
		want := int(800 * opts.PixelRatio)
		if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
			t.Fatalf("PixelRatio=%g 期望 %dx%d，实际 %v", opts.PixelRatio, want, want, b)
		}
	}
}

func TestCaptureRestoresDecorations(t *testing.T) {
	v, _ := newView(t, solidTemplates())
	if _, err := Capture(context.Background(), v, PreviewOptions); err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	if !v.Decorations() {
		t.Fatalf("成功快照后装饰应恢复")
	}

	broken, _ := newView(t, templates.Static{})
	if _, err := Capture(context.Background(), broken, PreviewOptions); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("模板缺失应返回 ErrCaptureFailed，实际 %v", err)
	}
	if !broken.Decorations() {
		t.Fatalf("快照失败后装饰也应恢复")
	}
}

// TestCaptureOmitsDecorations 选中描边只在屏幕上出现，快照中不应出现。
func TestCaptureOmitsDecorations(t *testing.T) {
	v, e := newView(t, solidTemplates())
	id, _ := e.Selected()
	e.MoveAnnotation(id, 200, 200)
	v.Hover(id)
	a, _ := e.Annotation(id)

	uri, err := Capture(context.Background(), v, PreviewOptions)
	if err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	img := decode(t, uri)
	// 描边位于文本框外侧 1px 处
	x, y := int(a.X+a.Width/2), int(a.Y-1)
	r, g, b, _ := img.At(x, y).RGBA()
	if b>>8 > g>>8+40 && b>>8 > r>>8+40 {
		t.Fatalf("快照中出现了选中描边: (%d,%d)=%v", x, y, img.At(x, y))
	}
}

func TestCaptureDrawsTemplateAndBox(t *testing.T) {
	v, e := newView(t, solidTemplates())
	id, _ := e.Selected()
	a, _ := e.Annotation(id)
	e.MoveAnnotation(id, 300, 300)

	uri, err := Capture(context.Background(), v, PreviewOptions)
	if err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	img := decode(t, uri)
	r, g, b, _ := img.At(100, 100).RGBA()
	if int(r>>8) > 60 || int(g>>8) < 100 || int(b>>8) > 90 {
		t.Fatalf("(100,100) 应为模板颜色，实际 %v", img.At(100, 100))
	}
	// 文本框左上方内侧、远离文字与圆角的位置接近白色
	r, g, b, _ = img.At(300+int(paddingX/2), 300+int(a.Height/2)).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Fatalf("文本框底色应接近白色，实际 %v", img.At(300+int(paddingX/2), 300+int(a.Height/2)))
	}
}

func TestPreviewKeepsValueOnFailure(t *testing.T) {
	var p Preview
	broken, _ := newView(t, templates.Static{})
	if err := p.Refresh(context.Background(), broken); err == nil {
		t.Fatalf("期望失败")
	}
	if p.Value() != "" {
		t.Fatalf("失败时不应更新预览")
	}

	v, _ := newView(t, solidTemplates())
	if err := p.Refresh(context.Background(), v); err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	first := p.Value()
	if first == "" {
		t.Fatalf("成功后预览应被设置")
	}
	if err := p.Refresh(context.Background(), broken); err == nil {
		t.Fatalf("期望失败")
	}
	if p.Value() != first {
		t.Fatalf("失败后应保留上一次的预览")
	}
}

func TestCaptureNilRoot(t *testing.T) {
	if _, err := Capture(context.Background(), nil, PreviewOptions); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("nil 根节点应返回 ErrCaptureFailed，实际 %v", err)
	}
}

// TestCaptureClipsOversizedAnnotation 远大于视图的标注只绘制可见部分，完全在视图外的标注被跳过。
func TestCaptureClipsOversizedAnnotation(t *testing.T) {
	v, e := newView(t, solidTemplates())
	id, _ := e.Selected()
	e.ResizeAnnotation(id, 0, 0, 1e9, 1e9)
	far, _ := e.AddAnnotation("far away")
	e.MoveAnnotation(far.ID, 1e300, 1e300)

	uri, err := Capture(context.Background(), v, PreviewOptions)
	if err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	img := decode(t, uri)
	for _, p := range []image.Point{{400, 10}, {400, 400}, {790, 790}} {
		r, g, b, _ := img.At(p.X, p.Y).RGBA()
		if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
			t.Fatalf("%v 应被文本框底色覆盖，实际 %v", p, img.At(p.X, p.Y))
		}
	}

	e.RemoveAnnotation(id)
	uri, err = Capture(context.Background(), v, PreviewOptions)
	if err != nil {
		t.Fatalf("Capture 失败: %v", err)
	}
	img = decode(t, uri)
	if r, g, _, _ := img.At(400, 400).RGBA(); r>>8 > 60 || g>>8 < 100 {
		t.Fatalf("视图外的标注不应被绘制，(400,400)=%v", img.At(400, 400))
	}
}
