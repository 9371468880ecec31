package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// 该文件定义编辑器状态与服务端渲染请求的数据结构，供编辑器、渲染与调试 JSON 共用。

// 画布与标注的固定约束（单位：像素）。
const (
	CanvasSize = 800.0 // 服务端渲染画布边长

	MinWidth  = 100.0
	MinHeight = 40.0

	MinFontSize = 12.0
	MaxFontSize = 72.0

	DefaultWidth    = 200.0
	DefaultHeight   = 60.0
	DefaultFontSize = 20.0

	TemplateCount = 5 // 模板按 1..5 编号，循环切换

	// MaxExtent 限制换算到画布坐标后的位置与尺寸，超出的几何视为非法。
	MaxExtent = 10 * CanvasSize
)

// ErrInvalidRequest 表示渲染请求缺字段或取值非法。
var ErrInvalidRequest = errors.New("layout: 渲染请求非法")

// Annotation 是叠加在模板上的一个文本框，坐标位于显示坐标系（左上角为原点）。
type Annotation struct {
	ID       int64   `json:"id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"fontSize"`
	Selected bool    `json:"isSelected"`
}

// TextBox 是传输给服务端渲染器的文本框，只保留绘制需要的字段。
type TextBox struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"fontSize"`
}

// Request 对应 POST /api/generate-image 的请求体。
// DisplaySize > 0 时，坐标与字号会从显示尺寸缩放到 CanvasSize。
type Request struct {
	MemeNumber  int       `json:"memeNumber"`
	TextBoxes   []TextBox `json:"textBoxes"`
	DisplaySize float64   `json:"displaySize,omitempty"`
}

// Validate 检查模板编号与文本框几何是否可绘制。空列表是合法的。
// 几何先换算到画布坐标再检查范围：|x|、|y|、宽高不超过 MaxExtent，字号不超过 CanvasSize。
func (r Request) Validate() error {
	if r.MemeNumber < 1 || r.MemeNumber > TemplateCount {
		return fmt.Errorf("%w: memeNumber %d 不在 1..%d 范围内", ErrInvalidRequest, r.MemeNumber, TemplateCount)
	}
	if r.DisplaySize < 0 || !finite(r.DisplaySize) {
		return fmt.Errorf("%w: displaySize 非法", ErrInvalidRequest)
	}
	f := ScaleFactor(r.DisplaySize)
	for i, raw := range r.TextBoxes {
		tb := raw.Scale(f)
		if !finite(tb.X, tb.Y, tb.Width, tb.Height, tb.FontSize) {
			return fmt.Errorf("%w: textBoxes[%d] 含有非有限数值", ErrInvalidRequest, i)
		}
		if tb.Width <= 0 || tb.Height <= 0 {
			return fmt.Errorf("%w: textBoxes[%d] 尺寸必须为正数", ErrInvalidRequest, i)
		}
		if tb.FontSize <= 0 {
			return fmt.Errorf("%w: textBoxes[%d] 缺少 fontSize", ErrInvalidRequest, i)
		}
		if math.Abs(tb.X) > MaxExtent || math.Abs(tb.Y) > MaxExtent || tb.Width > MaxExtent || tb.Height > MaxExtent {
			return fmt.Errorf("%w: textBoxes[%d] 超出画布范围", ErrInvalidRequest, i)
		}
		if tb.FontSize > CanvasSize {
			return fmt.Errorf("%w: textBoxes[%d] 字号过大", ErrInvalidRequest, i)
		}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// wireRequest 用指针区分“缺失”与“零值”。
type wireRequest struct {
	MemeNumber  *int       `json:"memeNumber"`
	TextBoxes   *[]TextBox `json:"textBoxes"`
	DisplaySize float64    `json:"displaySize"`
}

// DecodeRequest 解析并校验请求体；memeNumber 与 textBoxes 都是必填项。
func DecodeRequest(r io.Reader) (Request, error) {
	var wire wireRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return Request{}, fmt.Errorf("%w: 解析 JSON 失败: %v", ErrInvalidRequest, err)
	}
	if wire.MemeNumber == nil {
		return Request{}, fmt.Errorf("%w: 缺少 memeNumber", ErrInvalidRequest)
	}
	if wire.TextBoxes == nil {
		return Request{}, fmt.Errorf("%w: 缺少 textBoxes", ErrInvalidRequest)
	}
	req := Request{
		MemeNumber:  *wire.MemeNumber,
		TextBoxes:   *wire.TextBoxes,
		DisplaySize: wire.DisplaySize,
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
