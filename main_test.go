package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/memegen/renderer"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/templates"
)

// writeTemplates 在 dir 下生成 meme1.jpg..meme5.jpg。
func writeTemplates(t *testing.T, dir string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 240, G: 180, B: 60, A: 255})
		}
	}
	for n := 1; n <= 5; n++ {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			t.Fatalf("jpeg.Encode: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, templates.Name(n)), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("写入模板失败: %v", err)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTemplates(t, dir)
	script := filepath.Join(dir, "demo.meme")
	if err := os.WriteFile(script, []byte(`meme 3 {
  display 400
  text "Hello ${user}" at 10, 10 size 150, 50 font 20 selected
}`), 0o644); err != nil {
		t.Fatalf("写入脚本失败: %v", err)
	}

	loader := templates.New(dir, nil)
	r := canvasrenderer.NewRenderer(loader)
	opts := options{
		input:   script,
		output:  filepath.Join(dir, "out", "meme.jpg"),
		format:  renderer.JPEG,
		debug:   filepath.Join(dir, "debug", "layout.json"),
		preview: filepath.Join(dir, "preview"),
		parity:  true,
		data:    map[string]any{"user": "Ada"},
	}
	if err := run(context.Background(), opts, r, loader, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("run 失败: %v", err)
	}

	out, err := os.Open(opts.output)
	if err != nil {
		t.Fatalf("缺少输出文件: %v", err)
	}
	defer out.Close()
	img, err := jpeg.Decode(out)
	if err != nil || img.Bounds().Dx() != 800 {
		t.Fatalf("输出应为 800px JPEG: err=%v", err)
	}

	raw, err := os.ReadFile(opts.debug)
	if err != nil {
		t.Fatalf("缺少调试 JSON: %v", err)
	}
	var dump struct {
		Template  int `json:"template"`
		Canonical struct {
			TextBoxes []struct {
				Text string  `json:"text"`
				X    float64 `json:"x"`
			} `json:"textBoxes"`
		} `json:"canonical"`
	}
	if err := json.Unmarshal(raw, &dump); err != nil {
		t.Fatalf("调试 JSON 无法解析: %v", err)
	}
	if dump.Template != 3 || len(dump.Canonical.TextBoxes) != 1 || dump.Canonical.TextBoxes[0].X != 20 || dump.Canonical.TextBoxes[0].Text != "Hello Ada" {
		t.Fatalf("unexpected debug dump %s", raw)
	}

	pf, err := os.Open(filepath.Join(opts.preview, "meme.png"))
	if err != nil {
		t.Fatalf("缺少预览: %v", err)
	}
	defer pf.Close()
	preview, err := png.Decode(pf)
	if err != nil {
		t.Fatalf("预览不是 PNG: %v", err)
	}
	// display 400，分享快照为 2 倍
	if b := preview.Bounds(); b.Dx() != 800 || b.Dy() != 800 {
		t.Fatalf("预览尺寸 %v", b)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	r := canvasrenderer.NewRenderer(templates.Static{})
	log := slog.New(slog.DiscardHandler)

	if err := run(context.Background(), options{input: filepath.Join(dir, "missing.meme")}, r, nil, log); err == nil {
		t.Fatalf("脚本不存在应报错")
	}
	bad := filepath.Join(dir, "bad.meme")
	if err := os.WriteFile(bad, []byte(`meme 1 { oops }`), 0o644); err != nil {
		t.Fatalf("写入脚本失败: %v", err)
	}
	if err := run(context.Background(), options{input: bad}, r, nil, log); err == nil {
		t.Fatalf("语法错误应报错")
	}
	if err := run(context.Background(), options{input: bad}, nil, nil, log); err == nil {
		t.Fatalf("renderer 为空应报错")
	}
}

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		name, output string
		want         renderer.Format
	}{
		{"", "out/meme.jpg", renderer.JPEG},
		{"", "out/meme.png", renderer.PNG},
		{"pdf", "out/meme.jpg", renderer.PDF},
		{"", "out/meme", renderer.JPEG},
	}
	for _, tc := range cases {
		got, err := resolveFormat(tc.name, tc.output)
		if err != nil || got != tc.want {
			t.Fatalf("resolveFormat(%q, %q) = %q, %v", tc.name, tc.output, got, err)
		}
	}
	if _, err := resolveFormat("", "out/meme.gif"); err == nil {
		t.Fatalf("gif 应报错")
	}
}

func TestLoadData(t *testing.T) {
	data, err := loadData(`{"a":1}`)
	if err != nil || data.(map[string]any)["a"] != 1.0 {
		t.Fatalf("内联 JSON 解析错误: %v %v", data, err)
	}
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(`{"b":"x"}`), 0o644); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	data, err = loadData("@" + path)
	if err != nil || data.(map[string]any)["b"] != "x" {
		t.Fatalf("文件 JSON 解析错误: %v %v", data, err)
	}
	if data, err := loadData(""); data != nil || err != nil {
		t.Fatalf("空参数应返回 nil")
	}
}
