package share

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ByLCY/memegen/templates"
)

// FileDownloader 把 data URI 解码后写入 Dir 目录，供命令行使用。
type FileDownloader struct {
	Dir string
}

// Download 实现 Downloader。
func (f FileDownloader) Download(dataURI, filename string) error {
	data, err := templates.DecodeDataURI(dataURI)
	if err != nil {
		return err
	}
	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建下载目录失败: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

// WriterOpener 把要打开的 URL 打印到 W，命令行下由用户自行打开。
type WriterOpener struct {
	W io.Writer
}

// StdoutOpener 打印到标准输出。
func StdoutOpener() WriterOpener { return WriterOpener{W: os.Stdout} }

// Open 实现 Opener。
func (o WriterOpener) Open(rawURL, target string) error {
	_, err := fmt.Fprintln(o.W, rawURL)
	return err
}

// WriterNotifier 把提示消息写到 W。
type WriterNotifier struct {
	W io.Writer
}

// Notify 实现 Notifier。
func (n WriterNotifier) Notify(msg string) {
	fmt.Fprintln(n.W, msg)
}

// WriterClipboard 在没有系统剪贴板的环境下把文本打印到 W。
type WriterClipboard struct {
	W io.Writer
}

// WriteText 实现 Clipboard。
func (c WriterClipboard) WriteText(text string) error {
	_, err := fmt.Fprintln(c.W, text)
	return err
}
