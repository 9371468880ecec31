// Package server 暴露服务端渲染、社交卡片与编辑会话的 HTTP 接口。
package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/renderer"
	canvasrenderer "github.com/ByLCY/memegen/renderer/canvas"
	"github.com/ByLCY/memegen/templates"
)

// DefaultMaxBodyBytes 限制渲染请求体大小。
const DefaultMaxBodyBytes = 1 << 20

const (
	msgInvalidRequest = "Invalid request"
	msgGenerateFailed = "Failed to generate image"
	msgMissingImage   = "Missing image parameter"
)

// Config 配置 Server。
type Config struct {
	Renderer     *canvasrenderer.Renderer
	Loader       templates.Loader // 编辑会话加载模板
	Client       *http.Client     // 社交卡片抓取图片
	MaxBodyBytes int64
}

// Server 是无状态的 HTTP 处理器集合；编辑会话的状态只存在于各自的连接里。
type Server struct {
	cfg Config
}

// New 创建 Server。
func New(cfg Config) (*Server, error) {
	if cfg.Renderer == nil {
		return nil, errors.New("server: 未配置渲染器")
	}
	if cfg.Loader == nil {
		return nil, errors.New("server: 未配置模板加载器")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{cfg: cfg}, nil
}

// Handler 返回注册了全部路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-image", s.handleGenerate)
	mux.HandleFunc("GET /api/og", s.handleCard)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return withRequestID(mux)
}

// handleGenerate 渲染请求体描述的布局并以附件形式返回图片（默认 JPEG）。
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r.Context())

	format, err := renderer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	req, err := layout.DecodeRequest(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		log.Info("渲染请求非法", "err", err)
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	data, err := s.cfg.Renderer.Render(r.Context(), req, format)
	if err != nil {
		if errors.Is(err, layout.ErrInvalidRequest) {
			log.Info("渲染请求非法", "err", err)
			writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
		log.Warn("渲染失败", "err", err, "meme", req.MemeNumber)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleCard 抓取 image 参数指向的图片，生成 800×800 的社交卡片 PNG。
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("image")
	if imageURL == "" {
		http.Error(w, msgMissingImage, http.StatusBadRequest)
		return
	}
	img, err := templates.Fetch(r.Context(), s.cfg.Client, imageURL)
	if err != nil {
		loggerFrom(r.Context()).Warn("抓取卡片图片失败", "err", err)
		http.Error(w, msgGenerateFailed, http.StatusInternalServerError)
		return
	}
	data, err := s.cfg.Renderer.RenderCard(img)
	if err != nil {
		loggerFrom(r.Context()).Warn("生成卡片失败", "err", err)
		http.Error(w, msgGenerateFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// withRequestID 为每个请求分配 id，写入 X-Request-ID 并记录访问日志。
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		log := Logger().With("request_id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(withLogger(r.Context(), log)))
		log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack 让 websocket 升级可以穿过记录器。
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: ResponseWriter 不支持 Hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
