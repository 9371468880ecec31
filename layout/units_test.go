package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
	// 20px 字号在 1mm=1px 的画布上对应的字体 em 高度应为 20mm
	if got := PxToPt(20) * PtToMm; math.Abs(got-20) > 1e-9 {
		t.Fatalf("PxToPt(20) 换回 mm 期望 20，实际 %g", got)
	}
}

// TestCanonicalScaling 验证显示坐标按 800/displaySize 缩放，且不修改原请求。
func TestCanonicalScaling(t *testing.T) {
	req := Request{
		MemeNumber:  3,
		DisplaySize: 400,
		TextBoxes:   []TextBox{{Text: "HI", X: 10, Y: 20, Width: 100, Height: 40, FontSize: 20}},
	}
	got := req.Canonical()
	want := TextBox{Text: "HI", X: 20, Y: 40, Width: 200, Height: 80, FontSize: 40}
	if got.TextBoxes[0] != want {
		t.Fatalf("缩放结果错误: got=%+v want=%+v", got.TextBoxes[0], want)
	}
	if got.DisplaySize != 0 || got.MemeNumber != 3 {
		t.Fatalf("Canonical 应清零 DisplaySize 并保留模板: %+v", got)
	}
	if req.TextBoxes[0].X != 10 {
		t.Fatalf("Canonical 不应修改原请求")
	}
}

// TestCanonicalWithoutDisplaySize 未提供 displaySize 时坐标原样使用。
func TestCanonicalWithoutDisplaySize(t *testing.T) {
	req := Request{MemeNumber: 1, TextBoxes: []TextBox{{Text: "a", X: 1, Y: 2, Width: 100, Height: 40, FontSize: 12}}}
	if got := req.Canonical(); got.TextBoxes[0] != req.TextBoxes[0] {
		t.Fatalf("期望原样返回，实际 %+v", got.TextBoxes[0])
	}
	if f := ScaleFactor(-1); f != 1 {
		t.Fatalf("非正 displaySize 的缩放系数应为 1，实际 %g", f)
	}
}

func TestClampLinesAddsEllipsis(t *testing.T) {
	lines := []TextLine{{Content: "one"}, {Content: "two"}, {Content: "three"}, {Content: "four"}}
	fits := func(s string) bool { return len([]rune(s)) <= 4 }
	out, clipped := ClampLines(lines, 3, fits)
	if !clipped || len(out) != 3 {
		t.Fatalf("expected 3 clamped lines, got %d (clipped=%v)", len(out), clipped)
	}
	if out[2].Content != "thr…" {
		t.Fatalf("unexpected last line %q", out[2].Content)
	}
	if lines[2].Content != "three" {
		t.Fatalf("ClampLines must not modify its input")
	}
	if same, clipped := ClampLines(lines[:2], 3, fits); clipped || len(same) != 2 {
		t.Fatalf("short input must be returned unchanged")
	}
}

func TestClipRect(t *testing.T) {
	cases := []struct {
		x, y, w, h     float64
		cx, cy, cw, ch float64
		ok             bool
	}{
		{10, 20, 100, 40, 10, 20, 100, 40, true},
		{-50, 700, 200, 1e9, 0, 700, 150, 100, true},
		{0, 0, 1e300, 1e300, 0, 0, 800, 800, true},
		{900, 0, 100, 40, 0, 0, 0, 0, false},
		{-200, -200, 100, 100, 0, 0, 0, 0, false},
	}
	for _, tc := range cases {
		cx, cy, cw, ch, ok := ClipRect(tc.x, tc.y, tc.w, tc.h, 0, CanvasSize)
		if ok != tc.ok || cx != tc.cx || cy != tc.cy || cw != tc.cw || ch != tc.ch {
			t.Fatalf("ClipRect(%g,%g,%g,%g) = (%g,%g,%g,%g,%v)", tc.x, tc.y, tc.w, tc.h, cx, cy, cw, ch, ok)
		}
	}
}
