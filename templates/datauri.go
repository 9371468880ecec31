package templates

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotDataURI 表示字符串不是 data: URI。
var ErrNotDataURI = errors.New("templates: 不是 data URI")

// IsDataURI 报告 s 是否以 data: 开头。
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// DecodeDataURI 解析 data:[<mediatype>][;base64],<data>，返回数据部分的字节。
func DecodeDataURI(uri string) ([]byte, error) {
	if !IsDataURI(uri) {
		return nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(uri[5:], ",")
	if !ok {
		return nil, fmt.Errorf("%w: 缺少数据部分", ErrNotDataURI)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("解码 base64 失败: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("解码 data URI 失败: %w", err)
	}
	return []byte(s), nil
}
