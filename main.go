package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ByLCY/memegen/binding"
	"github.com/ByLCY/memegen/capture"
	"github.com/ByLCY/memegen/dsl"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/parity"
	"github.com/ByLCY/memegen/renderer"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/server"
	"github.com/ByLCY/memegen/share"
	"github.com/ByLCY/memegen/templates"
)

func main() {
	input := flag.String("in", "examples/demo.meme", "布局脚本路径")
	output := flag.String("out", "output/meme.jpg", "渲染结果输出路径")
	formatName := flag.String("format", "", "输出格式 jpeg|png|pdf，默认按 -out 扩展名推断")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到脚本的 JSON 数据；以 @ 开头表示文件路径")
	preview := flag.String("preview", "", "编辑视图快照（meme.png）的输出目录")
	checkParity := flag.Bool("parity", false, "比较编辑视图快照与服务端渲染的差异")
	sharePlatform := flag.String("share", "", "分享页面链接到 x|bluesky|threads")
	pageURL := flag.String("page", "", "分享时使用的页面链接")
	templateSrc := flag.String("templates", envOr("MEMEGEN_TEMPLATE_BASE", ""), "模板目录或基础 URL，默认与脚本同目录")
	fontSrc := flag.String("font", "", "服务端文本字体（TTF/OTF 路径或 embed:Go-Regular）")
	quality := flag.Int("quality", canvasrenderer.DefaultQuality, "JPEG 质量 1..100")
	addr := flag.String("serve", envOr("MEMEGEN_ADDR", ""), "以 HTTP 服务方式运行的监听地址，例如 :8080")
	advertise := flag.Bool("mdns", false, "通过 mDNS 在局域网内广播服务")
	fetchTimeout := flag.Duration("fetch-timeout", 10*time.Second, "下载模板与图片的超时，0 表示不限制")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	server.SetLogger(logger)

	src := *templateSrc
	if src == "" && *addr == "" {
		src = filepath.Dir(*input)
	}
	if src == "" {
		log.Fatalf("服务模式需要 -templates 或 MEMEGEN_TEMPLATE_BASE")
	}
	client := &http.Client{Timeout: *fetchTimeout}
	loader := templates.New(src, client)
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		Loader:  loader,
		FontSrc: *fontSrc,
		Quality: *quality,
	})

	if *addr != "" {
		if err := serve(*addr, *advertise, r, loader, client); err != nil {
			log.Fatalf("服务异常退出: %v", err)
		}
		return
	}

	data, err := loadData(*dataJSON)
	if err != nil {
		log.Fatalf("解析 data JSON 失败: %v", err)
	}
	format, err := resolveFormat(*formatName, *output)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts := options{
		input:         *input,
		output:        *output,
		format:        format,
		debug:         *debug,
		preview:       *preview,
		parity:        *checkParity,
		sharePlatform: *sharePlatform,
		pageURL:       *pageURL,
		data:          data,
	}
	if err := run(context.Background(), opts, r, loader, logger); err != nil {
		log.Fatalf("生成图片失败: %v", err)
	}
	fmt.Printf("已生成图片：%s\n", *output)
}

type options struct {
	input         string
	output        string
	format        renderer.Format
	debug         string
	preview       string
	parity        bool
	sharePlatform string
	pageURL       string
	data          any
}

// run 串联脚本解析、编辑器重放、服务端渲染，以及可选的视图快照与分享。
func run(ctx context.Context, opts options, r *canvasrenderer.Renderer, loader templates.Loader, logger *slog.Logger) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("无法打开脚本 %s: %w", opts.input, err)
	}
	defer file.Close()

	script, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析脚本失败: %w", err)
	}
	lay, err := dsl.Compile(script, opts.data)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if opts.debug != "" {
		if err := writeDebug(lay, opts.debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := r.Render(ctx, lay.Request(), opts.format)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}

	if opts.preview == "" && !opts.parity && opts.sharePlatform == "" {
		return nil
	}
	view := capture.NewView(lay.Editor, loader, r, lay.DisplaySize)
	dispatcher := &share.Dispatcher{
		Downloader: share.FileDownloader{Dir: opts.preview},
		Clipboard:  share.WriterClipboard{W: os.Stdout},
		Notifier:   share.WriterNotifier{W: os.Stderr},
		Opener:     share.StdoutOpener(),
		Logger:     logger,
	}

	if opts.preview != "" {
		uri, err := capture.Capture(ctx, view, capture.ShareOptions)
		if err != nil {
			return fmt.Errorf("生成预览失败: %w", err)
		}
		if err := dispatcher.Download(uri); err != nil {
			return err
		}
	}
	if opts.parity {
		rep, err := parity.Measure(ctx, view, r, lay.Editor.Request())
		if err != nil {
			return fmt.Errorf("比较渲染结果失败: %w", err)
		}
		logger.Info("渲染一致性", "report", rep.String())
	}
	if opts.sharePlatform != "" {
		platform, err := share.ParsePlatform(opts.sharePlatform)
		if err != nil {
			return err
		}
		if err := dispatcher.ShareTo(ctx, platform, opts.pageURL); err != nil {
			return fmt.Errorf("分享失败: %w", err)
		}
	}
	return nil
}

// serve 运行 HTTP 服务直到收到中断信号。
func serve(addr string, advertise bool, r *canvasrenderer.Renderer, loader templates.Loader, client *http.Client) error {
	srv, err := server.New(server.Config{Renderer: r, Loader: loader, Client: client})
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}

	if advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		md, err := server.Advertise(port)
		if err != nil {
			ln.Close()
			return err
		}
		defer md.Shutdown()
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	server.Logger().Info("服务已启动", "addr", ln.Addr().String())
	if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeDebug(lay *dsl.Layout, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(lay.Editor, lay.DisplaySize, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

// loadData 解析 -data：内联 JSON，或 @path 指向的 JSON 文件。
func loadData(arg string) (any, error) {
	if arg == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		return binding.Load(path)
	}
	return binding.Decode(strings.NewReader(arg))
}

// resolveFormat 优先使用 -format，否则按输出文件扩展名推断。
func resolveFormat(name, output string) (renderer.Format, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(output), ".")
	}
	return renderer.ParseFormat(name)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
