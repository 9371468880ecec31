// Package share 把成品图或页面链接交给外部分享渠道：系统分享、社交平台 intent、剪贴板或本地下载。
// 本包自身不发起网络请求。
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const (
	// Filename 是下载时固定使用的文件名。
	Filename = "meme.png"

	ShareTitle = "My Meme Creation"
	ShareText  = "Check out this meme I created!"
	IntentText = "Check out this feature request!"
)

// Platform 是分享目标平台。
type Platform string

const (
	X       Platform = "x"
	Bluesky Platform = "bluesky"
	Threads Platform = "threads"
)

// ErrUnknownPlatform 表示不支持的平台名。
var ErrUnknownPlatform = errors.New("share: 未知平台")

// ParsePlatform 解析平台名，忽略大小写；"twitter" 视为 X。
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "twitter":
		return X, nil
	case "bluesky":
		return Bluesky, nil
	case "threads":
		return Threads, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// Label 返回展示给用户的平台名。
func (p Platform) Label() string {
	switch p {
	case X:
		return "X"
	case Bluesky:
		return "Bluesky"
	case Threads:
		return "Threads"
	}
	return string(p)
}

// Payload 是系统分享面板收到的内容。
type Payload struct {
	Title   string
	Text    string
	DataURI string
}

// NativeSharer 是按能力探测的系统分享面板。
type NativeSharer interface {
	CanShare(p Payload) bool
	Share(ctx context.Context, p Payload) error
}

// Downloader 把 data URI 保存为本地文件。
type Downloader interface {
	Download(dataURI, filename string) error
}

// Clipboard 写入剪贴板。
type Clipboard interface {
	WriteText(text string) error
}

// Notifier 向用户展示一条短暂消息。
type Notifier interface {
	Notify(msg string)
}

// Opener 在新的浏览上下文中打开 URL。
type Opener interface {
	Open(rawURL, target string) error
}

// Dispatcher 组合各个分享能力。任一字段为 nil 时对应动作退化为不可用。
type Dispatcher struct {
	Native     NativeSharer
	Downloader Downloader
	Clipboard  Clipboard
	Notifier   Notifier
	Opener     Opener
	Logger     *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Share 优先使用系统分享；不支持或分享失败时回退到下载，此时不向用户报错。
// dataURI 为空（尚无预览）时什么也不做。
func (d *Dispatcher) Share(ctx context.Context, dataURI string) error {
	if dataURI == "" {
		return nil
	}
	p := Payload{Title: ShareTitle, Text: ShareText, DataURI: dataURI}
	if d.Native != nil && d.Native.CanShare(p) {
		err := d.Native.Share(ctx, p)
		if err == nil {
			return nil
		}
		d.logger().Debug("系统分享失败，回退到下载", "err", err)
	}
	return d.Download(dataURI)
}

// Download 以固定文件名下载图片。
func (d *Dispatcher) Download(dataURI string) error {
	if dataURI == "" {
		return nil
	}
	if d.Downloader == nil {
		return errors.New("share: 未配置下载器")
	}
	if err := d.Downloader.Download(dataURI, Filename); err != nil {
		return fmt.Errorf("下载图片失败: %w", err)
	}
	return nil
}

// ShareTo 分享页面链接到指定平台：X 打开 intent URL，其余平台复制链接并提示用户。
func (d *Dispatcher) ShareTo(ctx context.Context, platform Platform, pageURL string) error {
	switch platform {
	case X:
		if d.Opener == nil {
			return errors.New("share: 未配置 Opener")
		}
		intent, err := IntentURL(platform, IntentText, pageURL)
		if err != nil {
			return err
		}
		return d.Opener.Open(intent, "_blank")
	case Bluesky, Threads:
		if d.Clipboard != nil {
			// 剪贴板失败不单独处理
			if err := d.Clipboard.WriteText(pageURL); err != nil {
				d.logger().Debug("写入剪贴板失败", "err", err)
			}
		}
		if d.Notifier != nil {
			d.Notifier.Notify("Link copied! You can now paste it on " + platform.Label())
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
}

// IntentURL 构造预填文本与链接的发帖 URL。目前只有 X 提供 intent。
func IntentURL(platform Platform, text, pageURL string) (string, error) {
	if platform != X {
		return "", fmt.Errorf("%w: %s 没有 intent URL", ErrUnknownPlatform, platform.Label())
	}
	u := url.URL{Scheme: "https", Host: "x.com", Path: "/intent/post"}
	q := url.Values{}
	q.Set("text", text)
	q.Set("url", pageURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
