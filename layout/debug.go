package layout

import (
	"encoding/json"
	"os"
)

// debugDump 是调试 JSON 的顶层结构：编辑器状态与即将发送的渲染请求。
type debugDump struct {
	Template    int          `json:"template"`
	Selected    *int64       `json:"selected"`
	Annotations []Annotation `json:"annotations"`
	Request     Request      `json:"request"`
	Canonical   Request      `json:"canonical"`
}

// WriteDebugJSON 将编辑器状态输出为 JSON，便于排查坐标换算问题。
func WriteDebugJSON(e *Editor, displaySize float64, path string) error {
	if e == nil {
		return nil
	}
	req := e.Request()
	req.DisplaySize = displaySize
	dump := debugDump{
		Template:    e.Template(),
		Annotations: e.Annotations(),
		Request:     req,
		Canonical:   req.Canonical(),
	}
	if id, ok := e.Selected(); ok {
		dump.Selected = &id
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
