package server

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

// SetLogger 设置 server 包使用的日志器，默认不输出。传入 nil 恢复静默。
//
// 使用的级别：
//   - [slog.LevelDebug]: 会话命令、分享回退等细节
//   - [slog.LevelInfo]: 每个请求一条访问日志、服务启动
//   - [slog.LevelWarn]: 渲染或模板加载失败
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}

// Logger 返回当前日志器，可并发调用。
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

type loggerKey struct{}

// withLogger 把带请求 id 的日志器放进 ctx。
func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFrom 取出请求级日志器，没有时返回包级日志器。
func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return Logger()
}
