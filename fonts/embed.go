package fonts

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体名称。Medium 对应界面上的 semibold 文本。
const (
	Regular = "Go-Regular"
	Medium  = "Go-Medium"
	Bold    = "Go-Bold"
)

var builtin = map[string][]byte{
	strings.ToLower(Regular): goregular.TTF,
	strings.ToLower(Medium):  gomedium.TTF,
	strings.ToLower(Bold):    gobold.TTF,
}

// Load 返回字体的字节数据。src 可写为 "embed:Go-Regular"（内置字体，大小写不敏感）
// 或普通文件路径（例如下载好的 Inter-Regular.ttf）。
func Load(src string) ([]byte, error) {
	if name, ok := strings.CutPrefix(src, "embed:"); ok {
		data, found := builtin[strings.ToLower(name)]
		if !found {
			return nil, fmt.Errorf("找不到内置字体 %s", name)
		}
		return data, nil
	}
	if src == "" {
		return nil, fmt.Errorf("字体路径为空")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}
