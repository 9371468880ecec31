package templates

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/memegen/layout"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("编码 JPEG 失败: %v", err)
	}
	return buf.Bytes()
}

func TestHTTPLoader(t *testing.T) {
	data := jpegBytes(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/meme2.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := New(srv.URL+"/assets", srv.Client())
	img, err := l.Load(context.Background(), 2)
	if err != nil {
		t.Fatalf("加载模板失败: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Fatalf("unexpected width %d", img.Bounds().Dx())
	}
	if _, err := l.Load(context.Background(), 3); !errors.Is(err, ErrTemplateLoad) {
		t.Fatalf("404 应返回 ErrTemplateLoad，实际 %v", err)
	}
	if _, err := l.Load(context.Background(), 9); !errors.Is(err, layout.ErrInvalidRequest) {
		t.Fatalf("越界编号应返回 ErrInvalidRequest，实际 %v", err)
	}
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Name(1)), jpegBytes(t, 8, 4), 0o644); err != nil {
		t.Fatalf("写入模板失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, Name(2)), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("写入模板失败: %v", err)
	}
	l := New(dir, nil)
	img, err := l.Load(context.Background(), 1)
	if err != nil {
		t.Fatalf("加载模板失败: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, err := l.Load(context.Background(), 2); !errors.Is(err, ErrTemplateLoad) {
		t.Fatalf("无法解码应返回 ErrTemplateLoad，实际 %v", err)
	}
	if _, err := l.Load(context.Background(), 5); !errors.Is(err, ErrTemplateLoad) {
		t.Fatalf("缺失文件应返回 ErrTemplateLoad，实际 %v", err)
	}
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	if _, err := Fetch(context.Background(), http.DefaultClient, "file:///etc/passwd"); !errors.Is(err, ErrTemplateLoad) {
		t.Fatalf("非 http 地址应被拒绝，实际 %v", err)
	}
}
